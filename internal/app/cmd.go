package app

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れトークンの定期削除ワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandBootstrap はマイグレーション、メディアディレクトリ作成、同梱環境音の同期を行うことを示す。
	CommandBootstrap Command = "bootstrap"
	// CommandCreateAdmin は管理者ユーザーを作成または再設定することを示す。
	CommandCreateAdmin Command = "create-admin"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandServe, CommandMigrate, CommandBootstrap, CommandCreateAdmin, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}

// adminCredentials はcreate-adminコマンドの引数。
type adminCredentials struct {
	Username string
	Password string
}

// parseCreateAdminArgs は "create-admin --username <name> --password <pass>" の引数を解析する。
// argsにはサブコマンド名より後ろの引数を渡す。
// パスワードが未指定の場合は環境変数ADMIN_PASSWORDを使う。
func parseCreateAdminArgs(args []string, getenv func(string) string, stderr io.Writer) (adminCredentials, error) {
	fs := flag.NewFlagSet(string(CommandCreateAdmin), flag.ContinueOnError)
	fs.SetOutput(stderr)

	var creds adminCredentials
	fs.StringVar(&creds.Username, "username", "", "管理者のユーザー名")
	fs.StringVar(&creds.Password, "password", "", "管理者のパスワード（未指定時はADMIN_PASSWORD）")
	if err := fs.Parse(args); err != nil {
		return adminCredentials{}, fmt.Errorf("invalid create-admin arguments: %w", err)
	}

	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Password == "" && getenv != nil {
		creds.Password = getenv("ADMIN_PASSWORD")
	}
	if creds.Username == "" || creds.Password == "" {
		return adminCredentials{}, fmt.Errorf("create-admin requires --username and --password")
	}
	return creds, nil
}
