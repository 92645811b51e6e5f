// Package logger はJSON構造化ログの出力先とレベルを設定する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options はグローバルロガーの設定。
type Options struct {
	Level string // debug, info, warn, error
	File  string // 空でなければ標準出力に加えてローテーションするファイルにも出力する
}

// ParseLevel はLOG_LEVELの値をslog.Levelに変換する。未知の値はinfoとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// NewRotatingFile は10MB毎にローテーションし、5世代・30日分を圧縮して残すファイル出力を返す。
func NewRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // 日
		Compress:   true,
	}
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 返されたio.Closerは終了時に閉じる。ファイル出力がない場合も非nilを返す。
func SetupDefault(stdout io.Writer, opts Options) (*slog.Logger, io.Closer) {
	if stdout == nil {
		stdout = os.Stdout
	}

	var w io.Writer = stdout
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := NewRotatingFile(opts.File)
		w = io.MultiWriter(stdout, file)
		closer = file
	}

	logger := Setup(w, ParseLevel(opts.Level))
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
