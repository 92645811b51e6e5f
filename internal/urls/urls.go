// Package urls は名前付きルートとURL生成を提供する。
// ハンドラーとテンプレートはパスを直接書かず、ルート名から生成する。
package urls

import (
	"fmt"
	"net/url"
	"strings"
)

// ルート名。
const (
	NotesHome    = "notes:home"
	NotesList    = "notes:list"
	NotesAdd     = "notes:add"
	NotesDetail  = "notes:detail"
	NotesEdit    = "notes:edit"
	NotesDelete  = "notes:delete"
	NotesSuccess = "notes:success"

	NewsHome   = "news:home"
	NewsDetail = "news:detail"
	NewsEdit   = "news:edit"
	NewsDelete = "news:delete"

	UsersLogin  = "users:login"
	UsersLogout = "users:logout"
	UsersSignup = "users:signup"
)

// patterns はルート名とchiのルートパターンの対応。
var patterns = map[string]string{
	NotesHome:    "/",
	NotesList:    "/notes/",
	NotesAdd:     "/add/",
	NotesDetail:  "/note/{slug}/",
	NotesEdit:    "/edit/{slug}/",
	NotesDelete:  "/delete/{slug}/",
	NotesSuccess: "/done/",

	NewsHome:   "/news/",
	NewsDetail: "/news/{id}/",
	NewsEdit:   "/news/edit_comment/{id}/",
	NewsDelete: "/news/delete_comment/{id}/",

	UsersLogin:  "/auth/login/",
	UsersLogout: "/auth/logout/",
	UsersSignup: "/auth/signup/",
}

// Pattern はルート名に対応するchiのルートパターンを返す。未知の名前はpanicする。
func Pattern(name string) string {
	p, ok := patterns[name]
	if !ok {
		panic(fmt.Sprintf("urls: unknown route %q", name))
	}
	return p
}

// Reverse はルート名と引数からパスを生成する。
// 引数はパターン中の{...}に順に埋め込まれ、パスセグメントとしてエスケープされる。
func Reverse(name string, args ...any) string {
	p := Pattern(name)
	var b strings.Builder
	i := 0
	for {
		start := strings.IndexByte(p, '{')
		if start < 0 {
			b.WriteString(p)
			break
		}
		end := strings.IndexByte(p[start:], '}')
		if end < 0 {
			panic(fmt.Sprintf("urls: malformed pattern %q", Pattern(name)))
		}
		if i >= len(args) {
			panic(fmt.Sprintf("urls: route %q needs more arguments", name))
		}
		b.WriteString(p[:start])
		b.WriteString(url.PathEscape(fmt.Sprint(args[i])))
		i++
		p = p[start+end+1:]
	}
	if i != len(args) {
		panic(fmt.Sprintf("urls: route %q got %d extra arguments", name, len(args)-i))
	}
	return b.String()
}

// LoginRedirect はログインページへのURLを、元のリクエストURIをnextに付けて返す。
func LoginRedirect(requestURI string) string {
	next := strings.ReplaceAll(url.QueryEscape(requestURI), "%2F", "/")
	return Reverse(UsersLogin) + "?next=" + next
}

// SafeNext はnextがローカルパスの場合のみそれを返し、それ以外はfallbackを返す。
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// WithFragment はパスに#fragmentを付ける。
func WithFragment(path, fragment string) string {
	return path + "#" + fragment
}
