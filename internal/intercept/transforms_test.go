package intercept

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		in      string
		want    string
		wantErr bool
	}{
		{"identity", "MiXeD", "MiXeD", false},
		{"", "as-is", "as-is", false},
		{"upper", "abc", "ABC", false},
		{"UPPER", "abc", "ABC", false},
		{"lower", "ABC", "abc", false},
		{"drop", "anything", "", false},
		{"replace:guest=admin", "USER guest\r\n", "USER admin\r\n", false},
		{"replace:foo=", "foobar", "bar", false},
		{`replace:\r\n=\n`, "a\r\nb\r\n", "a\nb\n", false},
		{`replace:\x00=.`, "a\x00b", "a.b", false},
		{"replace:=x", "", "", true},
		{"replace", "", "", true},
		{"replace:nothing", "", "", true},
		{`replace:\q=x`, "", "", true},
		{`replace:\x4=x`, "", "", true},
		{`replace:\xzz=x`, "", "", true},
		{"rot13", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			tr, err := Parse(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr = %v", tt.spec, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			got, err := tr([]byte(tt.in))
			if err != nil {
				t.Fatalf("transform: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseChain(t *testing.T) {
	tr, err := ParseChain([]string{"replace:user=root", "upper"})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := tr([]byte("login user"))
	if string(got) != "LOGIN ROOT" {
		t.Errorf("got %q", got)
	}

	if _, err := ParseChain([]string{"upper", "bogus"}); err == nil {
		t.Error("expected error for unknown transform in chain")
	}

	empty, err := ParseChain(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _ = empty([]byte("x"))
	if string(got) != "x" {
		t.Errorf("empty chain should be identity, got %q", got)
	}
}

func TestChain_StopsOnError(t *testing.T) {
	calls := 0
	fail := func([]byte) ([]byte, error) { calls++; return nil, errTest }
	count := func(b []byte) ([]byte, error) { calls++; return b, nil }

	_, err := Chain(count, fail, count)([]byte("x"))
	if err != errTest {
		t.Fatalf("err = %v, want errTest", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("chain failure")

func TestReplace_CopiesArguments(t *testing.T) {
	old := []byte("a")
	tr := Replace(old, []byte("b"))
	old[0] = 'z'

	got, _ := tr([]byte("aaz"))
	if string(got) != "bbz" {
		t.Errorf("got %q, want %q", got, "bbz")
	}
}
