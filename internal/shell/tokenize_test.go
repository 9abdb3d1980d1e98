package shell

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantCmd  string
		wantArgs []string
	}{
		{"empty line", "", "", nil},
		{"whitespace only", "   \t  ", "", nil},
		{"bare command", "pwd", "pwd", nil},
		{"command with args", "ls /tmp /var", "ls", []string{"/tmp", "/var"}},
		{"runs of whitespace", "echo   a \t b", "echo", []string{"a", "b"}},
		{"leading and trailing whitespace", "  pwd  ", "pwd", nil},
		{"double quoted run is one token", `echo "a b c"`, "echo", []string{"a b c"}},
		{"single quoted run is one token", "echo 'x y'", "echo", []string{"x y"}},
		{"quotes joined to adjacent text", `echo a"b c"d`, "echo", []string{"ab cd"}},
		{"empty quoted token", `echo ""`, "echo", []string{""}},
		{"unterminated quote is literal", `echo "a b`, "echo", []string{`"a`, "b"}},
		{"mixed quote styles", `mv "my file" 'their file'`, "mv", []string{"my file", "their file"}},
		{"single quote inside double quotes", `echo "it's"`, "echo", []string{"it's"}},
		{"case preserved", "PWD", "PWD", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, args := Tokenize(tc.line)
			if cmd != tc.wantCmd {
				t.Errorf("Tokenize(%q) command = %q, want %q", tc.line, cmd, tc.wantCmd)
			}
			if !reflect.DeepEqual(args, tc.wantArgs) {
				t.Errorf("Tokenize(%q) args = %#v, want %#v", tc.line, args, tc.wantArgs)
			}
		})
	}
}
