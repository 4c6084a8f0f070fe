package domain

import "testing"

func TestAuthorName(t *testing.T) {
	cases := []struct {
		name string
		user User
		want string
	}{
		{name: "full name wins", user: User{Name: "Ada Lovelace", Email: "ada@example.com"}, want: "Ada Lovelace"},
		{name: "email local part", user: User{Email: "ada@example.com"}, want: "ada"},
		{name: "email without at", user: User{Email: "ada"}, want: "ada"},
		{name: "blank profile", user: User{Name: "  "}, want: DefaultAuthor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AuthorName(tc.user); got != tc.want {
				t.Fatalf("AuthorName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClampLikes(t *testing.T) {
	if got := ClampLikes(-3); got != 0 {
		t.Fatalf("ClampLikes(-3) = %d, want 0", got)
	}
	if got := ClampLikes(4); got != 4 {
		t.Fatalf("ClampLikes(4) = %d, want 4", got)
	}
}

func TestPromptPatchIsEmpty(t *testing.T) {
	if !(PromptPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	name := "renamed"
	if (PromptPatch{Name: &name}).IsEmpty() {
		t.Fatal("patch with name should not be empty")
	}
}

func TestParseAuthProvider(t *testing.T) {
	if p, ok := ParseAuthProvider("github"); !ok || p != AuthProviderGitHub {
		t.Fatalf("ParseAuthProvider(github) = %q, %v", p, ok)
	}
	if _, ok := ParseAuthProvider("myspace"); ok {
		t.Fatal("unexpected support for unknown provider")
	}
}
