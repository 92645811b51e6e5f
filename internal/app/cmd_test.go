package app

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     Command
		wantRest []string
	}{
		{"引数なしはserve", []string{}, CommandServe, nil},
		{"serve", []string{"serve"}, CommandServe, []string{}},
		{"worker", []string{"worker"}, CommandWorker, []string{}},
		{"import", []string{"import"}, CommandImport, []string{}},
		{"migrate", []string{"migrate"}, CommandMigrate, []string{}},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck, []string{}},
		{"add-sourceはURLを残す", []string{"add-source", "https://example.com"}, CommandAddSource, []string{"https://example.com"}},
		{"余分な引数は残りとして返す", []string{"worker", "--flag", "value"}, CommandWorker, []string{"--flag", "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rest, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("ParseCommand(%v) がエラーを返した: %v", tt.args, err)
			}
			if cmd != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, cmd, tt.want)
			}
			if len(rest) != len(tt.wantRest) {
				t.Fatalf("rest = %v, want %v", rest, tt.wantRest)
			}
			for i := range rest {
				if rest[i] != tt.wantRest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], tt.wantRest[i])
				}
			}
		})
	}
}

func TestParseCommand_UnknownListsValidCommands(t *testing.T) {
	_, _, err := ParseCommand([]string{"unknown"})
	if err == nil {
		t.Fatal("未知のコマンドはエラーを返すべき")
	}
	for _, c := range validCommands {
		if !strings.Contains(err.Error(), string(c)) {
			t.Errorf("エラーメッセージに %q が含まれていない: %v", c, err)
		}
	}
}
