// Package cli 提供在本機執行解析管線的命令列工具。
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"recipe-parser/internal/app"
	"recipe-parser/internal/core/auth"
	"recipe-parser/internal/core/parser"
	"recipe-parser/internal/infrastructure/config"
	"recipe-parser/internal/pkg/common"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrParseFailed 解析結果為失敗時回傳，讓程式以非零狀態結束
var ErrParseFailed = errors.New("recipe could not be parsed")

// Runner 解析管線，測試時可替換
type Runner interface {
	ParseFromText(ctx context.Context, text string) parser.ParserResult
	ParseFromURL(ctx context.Context, rawURL string) parser.ParserResult
}

// Options 全域旗標
type Options struct {
	Output   string
	UserID   string
	LogLevel string
	Timeout  time.Duration
}

// state 命令間共用的狀態
type state struct {
	opts     Options
	cfg      *config.Config
	runner   Runner
	pipeline *app.Pipeline
}

// NewRootCmd 建立 cobra 根命令；runner 為 nil 時依設定組裝真正的管線
func NewRootCmd(runner Runner) *cobra.Command {
	st := &state{runner: runner}

	root := &cobra.Command{
		Use:   "recipecli",
		Short: "Convert recipes into bakery workflows",
		Long:  "recipecli runs the recipe parsing pipeline locally against pasted text, a file or a recipe link.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&st.opts.Output, "output", "o", "json", "output format: json or yaml")
	flags.StringVar(&st.opts.UserID, "user", "local", "user id charged for rate limiting")
	flags.StringVar(&st.opts.LogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.DurationVar(&st.opts.Timeout, "timeout", 2*time.Minute, "overall timeout for one parse")

	root.AddCommand(newTextCommand(st))
	root.AddCommand(newURLCommand(st))
	root.AddCommand(newTokenCommand(st))
	return root
}

func (st *state) setup() error {
	switch st.opts.Output {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", st.opts.Output)
	}

	common.InitConsoleLogger(st.opts.LogLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	st.cfg = cfg
	return nil
}

// pipelineRunner 需要時才組裝管線，token 命令不需要模型金鑰
func (st *state) pipelineRunner(ctx context.Context) (Runner, error) {
	if st.runner != nil {
		return st.runner, nil
	}
	session := auth.StaticProvider{Session: auth.Session{UserID: strings.TrimSpace(st.opts.UserID)}}
	pipeline, err := app.Build(ctx, st.cfg, session)
	if err != nil {
		return nil, err
	}
	st.pipeline = pipeline
	st.runner = pipeline.Parser
	return st.runner, nil
}

// release 關閉管線並寫出日誌緩衝
func (st *state) release() {
	defer common.Sync()
	if st.pipeline == nil {
		return
	}
	_ = st.pipeline.Close()
	st.pipeline = nil
}

func (st *state) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if st.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, st.opts.Timeout)
}

func newTextCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "text [file|-]",
		Short: "Parse recipe text from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSource(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			runner, err := st.pipelineRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer st.release()
			ctx, cancel := st.withTimeout(cmd.Context())
			defer cancel()
			return emit(cmd.OutOrStdout(), runner.ParseFromText(ctx, text), st.opts.Output)
		},
	}
}

func newURLCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "url <url>",
		Short: "Fetch a recipe page and parse it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := st.pipelineRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer st.release()
			ctx, cancel := st.withTimeout(cmd.Context())
			defer cancel()
			return emit(cmd.OutOrStdout(), runner.ParseFromURL(ctx, args[0]), st.opts.Output)
		},
	}
}

func newTokenCommand(st *state) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for the API using JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewVerifier(st.cfg.Auth.JWTSecret, st.cfg.Auth.Issuer).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// readSource 讀取檔案；沒有參數或參數為 "-" 時讀取 stdin
func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read recipe file: %w", err)
	}
	return string(data), nil
}

// emit 輸出結果；失敗結果照樣輸出，再回傳 ErrParseFailed
func emit(w io.Writer, result parser.ParserResult, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	}

	if !result.Success {
		return ErrParseFailed
	}
	return nil
}
