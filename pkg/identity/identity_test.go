package identity

import (
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "User@Example.COM", "user@example.com"},
		{"trim whitespace", "  user@example.com  ", "user@example.com"},
		{"campus alias domain", "xqx23@mail.tsinghua.edu.cn", "xqx23@mails.tsinghua.edu.cn"},
		{"canonical campus domain unchanged", "xqx23@mails.tsinghua.edu.cn", "xqx23@mails.tsinghua.edu.cn"},
		{"gmail plus alias", "user+books@gmail.com", "user@gmail.com"},
		{"gmail dots", "u.s.e.r@gmail.com", "user@gmail.com"},
		{"googlemail to gmail", "user@googlemail.com", "user@gmail.com"},
		{"non-gmail plus preserved", "user+tag@outlook.com", "user+tag@outlook.com"},
		{"no at sign", "noemail", "noemail"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEmail(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmailHash_AliasesCollide(t *testing.T) {
	a := EmailHash("xqx23@mail.tsinghua.edu.cn")
	b := EmailHash("XQX23@mails.tsinghua.edu.cn")
	if a != b {
		t.Errorf("alias domains should hash identically: %s != %s", a, b)
	}

	c := EmailHash("other@mails.tsinghua.edu.cn")
	if a == c {
		t.Error("different accounts must not collide")
	}
}
