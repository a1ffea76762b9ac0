package main

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"github.com/gookit/color"
	"github.com/gorilla/securecookie"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unclebandit/moderated-board/internal/config"
	"github.com/unclebandit/moderated-board/internal/db"
	"github.com/unclebandit/moderated-board/internal/logger"
	"github.com/unclebandit/moderated-board/internal/mailer"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/repository"
	"github.com/unclebandit/moderated-board/internal/service"
)

// env is what every database command needs.
type env struct {
	cfg  *config.Config
	log  *logrus.Logger
	conn *sql.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	conn, err := db.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, cfg.DBDriver); err != nil {
		conn.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, conn: conn}, nil
}

func (e *env) moderation() *service.ModerationService {
	return &service.ModerationService{
		MessageRepo: &repository.MessageRepository{DB: e.conn},
		Notifier: &service.NotificationService{
			Mailer:  mailer.FromConfig(e.cfg, e.log),
			BaseURL: e.cfg.BaseURL,
			Log:     e.log,
		},
		Log: e.log,
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Administer the message board from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCreateAdminCmd(), newPendingCmd(), newApproveAllCmd(), newGenKeyCmd())
	return root
}

func newCreateAdminCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create an administrator, or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.conn.Close()

			accounts := &service.AccountService{UserRepo: &repository.UserRepository{DB: e.conn}, Log: e.log}
			user, err := accounts.EnsureAdmin(username, email, password)
			if err != nil {
				return err
			}
			color.Green.Printf("Administrator %s is ready (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "administrator username")
	cmd.Flags().StringVar(&email, "email", "", "administrator email address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List messages waiting for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.conn.Close()

			pending, err := (&repository.MessageRepository{DB: e.conn}).ListPending()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				color.Green.Println("No messages pending review.")
				return nil
			}
			renderMessages(cmd.OutOrStdout(), pending)
			color.Yellow.Printf("%d message(s) pending review\n", len(pending))
			return nil
		},
	}
}

func renderMessages(w io.Writer, messages []*model.Message) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Author", "Email", "Subject", "Created"})
	for _, m := range messages {
		email := m.AuthorEmail()
		if email == "" {
			email = "(none)"
		}
		table.Append([]string{
			strconv.Itoa(m.ID),
			m.AuthorName(),
			email,
			m.Subject,
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func newApproveAllCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "approve-all",
		Short: "Approve every pending message and email the authors",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.conn.Close()

			svc := e.moderation()
			count, err := svc.PendingCount()
			if err != nil {
				return err
			}
			if !yes {
				color.Yellow.Printf("%d message(s) would be approved. Re-run with --yes to approve them.\n", count)
				return nil
			}

			res, err := svc.ApproveAllPending()
			if err != nil {
				return err
			}
			for _, n := range res.Notices {
				printNotice(n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the approval")
	return cmd
}

func printNotice(n model.Notice) {
	switch n.Level {
	case model.NoticeError:
		color.Red.Println(n.Text)
	case model.NoticeWarning:
		color.Yellow.Println(n.Text)
	case model.NoticeSuccess:
		color.Green.Println(n.Text)
	default:
		fmt.Println(n.Text)
	}
}

func newGenKeyCmd() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Print a random value for BOARD_SESSION_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := securecookie.GenerateRandomKey(length)
			if key == nil {
				return fmt.Errorf("could not read random bytes")
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(key))
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", 32, "key length in bytes")
	return cmd
}
