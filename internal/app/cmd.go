package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はHTTPサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はニュース取り込みワーカーとして常駐することを示す。
	CommandWorker Command = "worker"
	// CommandImport は全アクティブソースを1回だけ取り込んで終了することを示す。
	CommandImport Command = "import"
	// CommandAddSource はURLからフィードを検出してニュースソースに登録することを示す。
	CommandAddSource Command = "add-source"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

var validCommands = []Command{
	CommandServe,
	CommandWorker,
	CommandImport,
	CommandAddSource,
	CommandMigrate,
	CommandHealthcheck,
}

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空の場合はCommandServeを返す。サポート外のコマンドはエラーになる。
func ParseCommand(args []string) (Command, []string, error) {
	if len(args) == 0 {
		return CommandServe, nil, nil
	}

	for _, c := range validCommands {
		if args[0] == string(c) {
			return c, args[1:], nil
		}
	}

	names := make([]string, len(validCommands))
	for i, c := range validCommands {
		names[i] = string(c)
	}
	return "", nil, fmt.Errorf("unknown command %q (valid commands: %s)", args[0], strings.Join(names, ", "))
}
