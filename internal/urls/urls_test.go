package urls

import "testing"

func TestReverse(t *testing.T) {
	tests := []struct {
		name  string
		route string
		args  []any
		want  string
	}{
		{name: "引数なし", route: NotesHome, want: "/"},
		{name: "ノート一覧", route: NotesList, want: "/notes/"},
		{name: "slug", route: NotesDetail, args: []any{"my-note"}, want: "/note/my-note/"},
		{name: "数値ID", route: NewsDetail, args: []any{int64(15)}, want: "/news/15/"},
		{name: "コメント編集", route: NewsEdit, args: []any{3}, want: "/news/edit_comment/3/"},
		{name: "エスケープ", route: NotesEdit, args: []any{"a b"}, want: "/edit/a%20b/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reverse(tt.route, tt.args...); got != tt.want {
				t.Errorf("Reverse(%q) = %q, want %q", tt.route, got, tt.want)
			}
		})
	}
}

func TestReverse_Panics(t *testing.T) {
	tests := []struct {
		name  string
		route string
		args  []any
	}{
		{name: "未知のルート", route: "nope:nope"},
		{name: "引数不足", route: NotesDetail},
		{name: "引数過多", route: NotesList, args: []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			Reverse(tt.route, tt.args...)
		})
	}
}

func TestLoginRedirect(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "/notes/", want: "/auth/login/?next=/notes/"},
		{uri: "/edit/my-note/", want: "/auth/login/?next=/edit/my-note/"},
		{uri: "/notes/?a=1&b=2", want: "/auth/login/?next=/notes/%3Fa%3D1%26b%3D2"},
	}
	for _, tt := range tests {
		if got := LoginRedirect(tt.uri); got != tt.want {
			t.Errorf("LoginRedirect(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{next: "", want: "/"},
		{next: "/notes/", want: "/notes/"},
		{next: "//evil.example.com", want: "/"},
		{next: "/\\evil.example.com", want: "/"},
		{next: "https://evil.example.com/", want: "/"},
	}
	for _, tt := range tests {
		if got := SafeNext(tt.next, "/"); got != tt.want {
			t.Errorf("SafeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestWithFragment(t *testing.T) {
	if got := WithFragment(Reverse(NewsDetail, 1), "comments"); got != "/news/1/#comments" {
		t.Errorf("WithFragment() = %q", got)
	}
}
