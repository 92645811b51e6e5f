// Package feed はニュースソース（RSS/Atomフィード）の検出と登録を提供する。
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/notenews/internal/model"
)

// Kind はフィードの種類（RSS/Atom）を表す。
type Kind string

const (
	// KindRSS はRSSフィード。
	KindRSS Kind = "rss"
	// KindAtom はAtomフィード。
	KindAtom Kind = "atom"
)

const (
	userAgent    = "notenews/1.0 (+news import)"
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.1"
	// sniffSize はXMLのルート要素を探す先頭バイト数。
	sniffSize = 4096
)

// Candidate はHTMLのlink要素から見つかったフィード候補を表す。
type Candidate struct {
	URL   string
	Kind  Kind
	Title string
}

// Detection はフィード検出の結果。
type Detection struct {
	FeedURL string
	SiteURL string
	Title   string // HTMLのlink要素のtitle、なければページのtitle
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// DetectorConfig はフィード検出時のHTTP取得の制限。
type DetectorConfig struct {
	Timeout          time.Duration
	MaxResponseBytes int64
}

// Detector はURLからRSS/Atomフィードを自動検出する。
type Detector struct {
	ssrfGuard SSRFValidator
	config    DetectorConfig
}

// NewDetector はDetectorを生成する。ssrfGuardがnilの場合は通常のクライアントを使う（テスト用）。
func NewDetector(ssrfGuard SSRFValidator, config DetectorConfig) *Detector {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = 5 << 20
	}
	return &Detector{ssrfGuard: ssrfGuard, config: config}
}

// feedMediaTypes はContent-Typeだけでフィードと判定できるメディアタイプ。
var feedMediaTypes = map[string]Kind{
	"application/rss+xml":  KindRSS,
	"application/atom+xml": KindAtom,
}

// genericXMLMediaTypes はボディを見て判定が必要なメディアタイプ。
var genericXMLMediaTypes = map[string]bool{
	"text/xml":        true,
	"application/xml": true,
}

// mediaTypeOf はContent-Typeからcharsetなどのパラメータを除いたメディアタイプを返す。
func mediaTypeOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsFeed はレスポンスがRSS/Atomフィードそのものかを判定する。
func IsFeed(contentType string, body []byte) bool {
	mediaType := mediaTypeOf(contentType)
	if _, ok := feedMediaTypes[mediaType]; ok {
		return true
	}
	if !genericXMLMediaTypes[mediaType] {
		return false
	}
	return looksLikeFeedXML(body)
}

// looksLikeFeedXML はXMLの先頭にRSS・RDF・Atomのルート要素があるかを調べる。
func looksLikeFeedXML(body []byte) bool {
	head := body
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	prefix := bytes.ToLower(head)

	switch {
	case bytes.Contains(prefix, []byte("<rss")), bytes.Contains(prefix, []byte("<rdf:rdf")):
		return true
	case bytes.Contains(prefix, []byte("<feed")):
		return bytes.Contains(prefix, []byte("http://www.w3.org/2005/atom"))
	default:
		return false
	}
}

// FindCandidates はHTMLのhead内にあるrel="alternate"のRSS/Atomリンクを文書順に返す。
// 相対URLはbaseURLを基準に解決する。pageTitleはhead内のtitle要素の文字列。
func FindCandidates(htmlBody []byte, baseURL string) (candidates []Candidate, pageTitle string) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, ""
	}
	doc, err := html.Parse(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, ""
	}

	head := findElement(doc, atom.Head)
	if head == nil {
		return nil, ""
	}

	for n := head.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Title:
			if n.FirstChild != nil && pageTitle == "" {
				pageTitle = strings.TrimSpace(n.FirstChild.Data)
			}
		case atom.Link:
			if c, ok := candidateFromLink(n, base); ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates, pageTitle
}

func candidateFromLink(n *html.Node, base *url.URL) (Candidate, bool) {
	var rel, linkType, href, title string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "rel":
			rel = strings.ToLower(a.Val)
		case "type":
			linkType = strings.ToLower(strings.TrimSpace(a.Val))
		case "href":
			href = strings.TrimSpace(a.Val)
		case "title":
			title = strings.TrimSpace(a.Val)
		}
	}

	if !hasToken(rel, "alternate") || href == "" {
		return Candidate{}, false
	}
	kind, ok := feedMediaTypes[linkType]
	if !ok {
		return Candidate{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{URL: base.ResolveReference(ref).String(), Kind: kind, Title: title}, true
}

// hasToken はスペース区切りのrel属性にtokenが含まれるかを返す。
func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// SelectBest は候補から登録するフィードを選ぶ。
// 優先順位: 入力URLと同一ホスト > Atom > 文書順
func SelectBest(candidates []Candidate, inputURL string) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	inputHost := hostOf(inputURL)
	best, bestScore := 0, -1
	for i, c := range candidates {
		score := 0
		if hostOf(c.URL) == inputHost {
			score += 100
		}
		if c.Kind == KindAtom {
			score += 10
		}
		// 同点なら先に現れた候補を残す
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return candidates[best], true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// siteURLOf はURLのスキームとホストだけを残したサイトURLを返す。
func siteURLOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

// Detect はURLがフィードそのものか、フィードへのリンクを持つHTMLかを判定してフィードURLを返す。
// SSRF検証で拒否されたURL、取得に失敗したURL、フィードが見つからないURLはAPIErrorを返す。
func (d *Detector) Detect(ctx context.Context, inputURL string) (*Detection, error) {
	inputURL = strings.TrimSpace(inputURL)
	if inputURL == "" {
		return nil, model.NewInvalidURLError("empty URL")
	}

	if d.ssrfGuard != nil {
		if err := d.ssrfGuard.ValidateURL(inputURL); err != nil {
			return nil, model.NewSSRFBlockedError()
		}
	}

	contentType, body, err := d.fetch(ctx, inputURL)
	if err != nil {
		return nil, err
	}

	if IsFeed(contentType, body) {
		return &Detection{FeedURL: inputURL, SiteURL: siteURLOf(inputURL)}, nil
	}
	if !strings.Contains(mediaTypeOf(contentType), "html") {
		return nil, model.NewFeedNotDetectedError(inputURL)
	}

	candidates, pageTitle := FindCandidates(body, inputURL)
	best, ok := SelectBest(candidates, inputURL)
	if !ok {
		return nil, model.NewFeedNotDetectedError(inputURL)
	}

	title := best.Title
	if title == "" {
		title = pageTitle
	}
	return &Detection{FeedURL: best.URL, SiteURL: siteURLOf(inputURL), Title: title}, nil
}

// fetch はURLを取得してContent-Typeとボディ（上限付き）を返す。
func (d *Detector) fetch(ctx context.Context, rawURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := d.client().Do(req)
	if err != nil {
		return "", nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, model.NewFetchFailedError(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.config.MaxResponseBytes))
	if err != nil {
		return "", nil, model.NewFetchFailedError(fmt.Sprintf("read body: %v", err))
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// client はSSRFGuardが設定されていればSSRF防止付きクライアントを返す。
func (d *Detector) client() *http.Client {
	if d.ssrfGuard != nil {
		return d.ssrfGuard.NewSafeClient(d.config.Timeout, d.config.MaxResponseBytes)
	}
	return &http.Client{Timeout: d.config.Timeout}
}
