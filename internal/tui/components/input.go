package components

import (
	"fmt"
	"strings"
)

// Input is a single-line text input.
type Input struct {
	label       string
	value       string
	placeholder string
	width       int
	focused     bool
	cursorPos   int
	maxLength   int
	required    bool
	numeric     bool
	err         string
	styles      Styles
}

// NewInput creates a new input field.
func NewInput(label string) *Input {
	return &Input{
		label:     label,
		width:     20,
		maxLength: 100,
		styles:    DefaultStyles(),
	}
}

// SetValue sets the input value.
func (i *Input) SetValue(v string) *Input {
	i.value = v
	i.cursorPos = len(v)
	return i
}

// SetPlaceholder sets the placeholder text.
func (i *Input) SetPlaceholder(p string) *Input {
	i.placeholder = p
	return i
}

// SetWidth sets the input width.
func (i *Input) SetWidth(w int) *Input {
	i.width = w
	return i
}

// SetMaxLength sets the maximum input length.
func (i *Input) SetMaxLength(m int) *Input {
	i.maxLength = m
	return i
}

// SetRequired marks the field as required.
func (i *Input) SetRequired(r bool) *Input {
	i.required = r
	return i
}

// SetNumeric restricts typing to digits and a decimal point.
func (i *Input) SetNumeric(n bool) *Input {
	i.numeric = n
	return i
}

// SetError sets an error message.
func (i *Input) SetError(e string) *Input {
	i.err = e
	return i
}

// SetStyles sets the input palette.
func (i *Input) SetStyles(s Styles) {
	i.styles = s
}

// Focus sets the focus state.
func (i *Input) Focus(focused bool) {
	i.focused = focused
	if focused && i.cursorPos > len(i.value) {
		i.cursorPos = len(i.value)
	}
}

// IsFocused returns the focus state.
func (i *Input) IsFocused() bool {
	return i.focused
}

// Label returns the field label.
func (i *Input) Label() string {
	return i.label
}

// Value returns the current value, trimmed.
func (i *Input) Value() string {
	return strings.TrimSpace(i.value)
}

// HandleKey applies a key press to the value.
func (i *Input) HandleKey(key string) {
	if !i.focused {
		return
	}

	switch key {
	case "backspace":
		if i.cursorPos > 0 {
			i.value = i.value[:i.cursorPos-1] + i.value[i.cursorPos:]
			i.cursorPos--
		}
	case "delete":
		if i.cursorPos < len(i.value) {
			i.value = i.value[:i.cursorPos] + i.value[i.cursorPos+1:]
		}
	case "left":
		if i.cursorPos > 0 {
			i.cursorPos--
		}
	case "right":
		if i.cursorPos < len(i.value) {
			i.cursorPos++
		}
	case "home", "ctrl+a":
		i.cursorPos = 0
	case "end", "ctrl+e":
		i.cursorPos = len(i.value)
	default:
		if len(key) != 1 || len(i.value) >= i.maxLength {
			return
		}
		if i.numeric && !strings.ContainsAny(key, "0123456789.") {
			return
		}
		i.value = i.value[:i.cursorPos] + key + i.value[i.cursorPos:]
		i.cursorPos++
	}
}

// Validate checks the required constraint and records the error.
func (i *Input) Validate() bool {
	if i.required && i.Value() == "" {
		i.err = "Required"
		return false
	}
	i.err = ""
	return true
}

// Render renders the input field.
func (i *Input) Render() string {
	label := i.label
	if i.required {
		label += "*"
	}
	label += ":"

	var display string
	width := len(i.value)
	switch {
	case i.value == "" && i.placeholder != "" && !i.focused:
		display = i.styles.Muted.Render(i.placeholder)
		width = len(i.placeholder)
	case i.focused:
		display = i.styles.Accent.Render(i.value[:i.cursorPos] + "_" + i.value[i.cursorPos:])
		width++
	default:
		display = i.styles.Value.Render(i.value)
	}
	if width < i.width {
		display += strings.Repeat(" ", i.width-width)
	}

	result := i.styles.Label.Width(16).Render(label) + " " + display
	if i.err != "" {
		result += " " + i.styles.Error.Render(i.err)
	}
	return result
}

// Form is a vertical stack of inputs with tab navigation.
type Form struct {
	title      string
	fields     []*Input
	focusIndex int
	submitted  bool
	cancelled  bool
	err        string
	styles     Styles
}

// NewForm creates a new form.
func NewForm(title string) *Form {
	return &Form{
		title:  title,
		styles: DefaultStyles(),
	}
}

// SetStyles sets the palette for the form and its fields.
func (f *Form) SetStyles(s Styles) *Form {
	f.styles = s
	for _, field := range f.fields {
		field.SetStyles(s)
	}
	return f
}

// AddField appends a field; the first one added takes focus.
func (f *Form) AddField(field *Input) *Form {
	field.SetStyles(f.styles)
	f.fields = append(f.fields, field)
	if len(f.fields) == 1 {
		field.Focus(true)
	}
	return f
}

// Field returns the field with the given label, or nil.
func (f *Form) Field(label string) *Input {
	for _, field := range f.fields {
		if field.label == label {
			return field
		}
	}
	return nil
}

// HandleKey handles form navigation and forwards edits to the focused field.
func (f *Form) HandleKey(key string) {
	switch key {
	case "tab", "down":
		f.nextField()
	case "shift+tab", "up":
		f.prevField()
	case "ctrl+s":
		f.submit()
	case "esc":
		f.cancelled = true
	case "enter":
		if f.focusIndex == len(f.fields)-1 {
			f.submit()
		} else {
			f.nextField()
		}
	default:
		if f.focusIndex < len(f.fields) {
			f.fields[f.focusIndex].HandleKey(key)
		}
	}
}

func (f *Form) submit() {
	valid := true
	for _, field := range f.fields {
		if !field.Validate() {
			valid = false
		}
	}
	f.submitted = valid
}

func (f *Form) nextField() {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focusIndex].Focus(false)
	f.focusIndex = (f.focusIndex + 1) % len(f.fields)
	f.fields[f.focusIndex].Focus(true)
}

func (f *Form) prevField() {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focusIndex].Focus(false)
	f.focusIndex--
	if f.focusIndex < 0 {
		f.focusIndex = len(f.fields) - 1
	}
	f.fields[f.focusIndex].Focus(true)
}

// IsSubmitted reports whether the form was submitted with every field valid.
func (f *Form) IsSubmitted() bool {
	return f.submitted
}

// IsCancelled returns true if form was cancelled.
func (f *Form) IsCancelled() bool {
	return f.cancelled
}

// Reopen clears the submitted state so a rejected form can be edited again.
func (f *Form) Reopen() {
	f.submitted = false
}

// SetError sets an error message.
func (f *Form) SetError(err string) {
	f.err = err
}

// Render renders the form for a terminal of the given width.
func (f *Form) Render(width int) string {
	var b strings.Builder

	b.WriteString(f.styles.Title.Render(fmt.Sprintf("=== %s ===", f.title)))
	b.WriteString("\n\n")

	for _, field := range f.fields {
		b.WriteString(field.Render())
		b.WriteString("\n")
	}

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(f.styles.Error.Render("Error: " + f.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if width < 60 {
		b.WriteString(f.styles.Label.Render("Tab:Next Enter:Save Esc:Cancel"))
	} else {
		b.WriteString(f.styles.Label.Render("Tab/Down:Next  Shift+Tab/Up:Prev  Enter/Ctrl+S:Save  Esc:Cancel"))
	}

	return b.String()
}
