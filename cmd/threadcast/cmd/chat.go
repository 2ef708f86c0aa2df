package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/threadcast/threadcast"
	"github.com/threadcast/threadcast/delivery"
	"github.com/threadcast/threadcast/gate"
	"github.com/threadcast/threadcast/queue"
	"github.com/threadcast/threadcast/thread"
)

const (
	chatUser   = "local"
	chatThread = "repl"
)

// newChatCmd runs the whole pipeline in-process against a local sqlite
// database: the gate, an in-memory queue and a stdout chunk writer, with only
// the model (and optionally speech) going to AWS.
func newChatCmd() *cobra.Command {
	params := &struct {
		Persona string
		Audio   bool
		DBFile  string
	}{}
	cmd := &cobra.Command{
		Use:   "chat <persona-file OR persona-files-dir> [...]",
		Short: "Chat with a persona from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			personas, err := loadPersonas(args)
			if err != nil {
				return err
			}
			name := params.Persona
			if name == "" {
				for n := range personas {
					name = n
					break
				}
			}
			persona, ok := personas[name]
			if !ok {
				return errors.Errorf("unknown persona %q", name)
			}

			db, err := gorm.Open(sqlite.Open(params.DBFile), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Silent),
			})
			if err != nil {
				return errors.Wrapf(err, "failed to open database")
			}

			store, err := thread.NewGormStore(slog.Default(), db)
			if err != nil {
				return err
			}

			mem := queue.NewMemory(1)
			runtime, err := threadcast.NewRuntime(ctx,
				threadcast.WithStore(store),
				threadcast.WithEnqueuer(mem),
				threadcast.WithPublisher(delivery.NewWriter(os.Stdout)),
			)
			if err != nil {
				return err
			}

			if _, err := runtime.Store().GetThread(ctx, chatUser, chatThread); err != nil {
				if _, err := runtime.Store().CreateThread(ctx, chatUser, chatThread, persona); err != nil {
					return err
				}
			}

			fmt.Printf("chatting with %s, ctrl-d to quit\n", persona.Name)
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				prompt := strings.TrimSpace(scanner.Text())
				if prompt == "" {
					continue
				}

				if _, err := runtime.Admit(ctx, gate.AdmitRequest{
					Identity:     chatUser,
					ThreadID:     chatThread,
					Prompt:       prompt,
					IncludeAudio: params.Audio,
				}); err != nil {
					return err
				}

				item, err := mem.Dequeue(ctx)
				if err != nil {
					return err
				}
				if err := runtime.Process(ctx, []queue.WorkItem{*item}); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&params.Persona, "persona", "", "persona name (defaults to the first one loaded)")
	cmd.Flags().BoolVar(&params.Audio, "audio", false, "synthesize sentence audio clips")
	cmd.Flags().StringVar(&params.DBFile, "db", "threadcast.db", "sqlite database file")

	return cmd
}
