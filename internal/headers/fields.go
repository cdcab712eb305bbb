package headers

import "github.com/jub0bs/corsrw/internal/util"

// A Field is a single header line. A list of fields preserves the order and
// the multiplicity of header lines, which http.Header does not.
type Field struct {
	Name  string
	Value string
}

// FirstField returns the value of the first field in fields whose name
// case-insensitively equals name, and true;
// if no such field exists, it returns "", false.
// Precondition: name is byte-lowercase.
func FirstField(fields []Field, name string) (string, bool) {
	for _, f := range fields {
		if len(f.Name) == len(name) && util.ByteLowercase(f.Name) == name {
			return f.Value, true
		}
	}
	return "", false
}
