// Package main — economyctl: обслуживание экономики без Telegram.
// Работает с тем же хранилищем, что и бот, поэтому запускать его
// нужно при остановленном боте (или с STORE_BACKEND=postgres).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sahaproshurik/bazarcikpmbot/internal/app"
	"github.com/sahaproshurik/bazarcikpmbot/internal/bot/gateway"
	"github.com/sahaproshurik/bazarcikpmbot/internal/common"
	"github.com/sahaproshurik/bazarcikpmbot/internal/config"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/admin"
	"github.com/sahaproshurik/bazarcikpmbot/internal/features/economy"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	root := &cobra.Command{
		Use:          "economyctl",
		Short:        "Обслуживание экономики бота",
		SilenceUsage: true,
	}

	root.AddCommand(
		newAccountCmd(),
		newTickCmd(),
		newLoanCmd(),
		newDatasetCmd(),
		newAdminCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// stdoutSender печатает сообщения, которые бот отправил бы в чат.
type stdoutSender struct{}

func (stdoutSender) Send(_ context.Context, m gateway.Message) (int, error) {
	fmt.Printf("[chat %d] %s\n", m.ChatID, m.Text)
	return 0, nil
}

func (stdoutSender) Answer(context.Context, string, string, bool) error { return nil }

func withCore(cmd *cobra.Command, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	core, err := app.NewCore(ctx, cfg, stdoutSender{})
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректный id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return v, nil
}

func newAccountCmd() *cobra.Command {
	account := &cobra.Command{Use: "account", Short: "Аккаунты игроков"}

	account.AddCommand(&cobra.Command{
		Use:   "show <user_id>",
		Short: "Показать аккаунт",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withCore(cmd, func(_ context.Context, core *app.Core) error {
				acc, ok := core.Ledger.Peek(id)
				if !ok {
					return common.ErrUserNotFound
				}
				fmt.Printf("Игрок:     %d (%s)\n", id, core.Members.DisplayName(id))
				fmt.Printf("Наличные:  %s\n", common.FormatMoney(acc.Cash))
				fmt.Printf("Банк:      %s\n", common.FormatMoney(acc.Bank))
				fmt.Printf("Опыт:      %d\n", acc.XP)
				fmt.Printf("Варны:     %d\n", len(acc.Warns))
				items := make([]string, 0, len(acc.Inventory))
				for item := range acc.Inventory {
					items = append(items, item)
				}
				sort.Strings(items)
				for _, item := range items {
					fmt.Printf("  %s × %d\n", item, acc.Inventory[item])
				}
				if loan, ok := core.Loans.Get(id); ok {
					fmt.Printf("Кредит:    осталось %s, срок %s\n",
						common.FormatMoney(loan.Remaining()), loan.DueAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	})

	account.AddCommand(&cobra.Command{
		Use:   "grant <user_id> <amount>",
		Short: "Начислить наличные",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				err := core.Guard.WithUser(id, func() error {
					return core.Ledger.Credit(ctx, id, amount, economy.TxAdminGive, "economyctl")
				})
				if err != nil {
					return err
				}
				fmt.Printf("Начислено %s игроку %d\n", common.FormatMoney(amount), id)
				return nil
			})
		},
	})
	return account
}

func newTickCmd() *cobra.Command {
	tick := &cobra.Command{Use: "tick", Short: "Фоновые тики"}

	tick.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Список тиков",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(_ context.Context, core *app.Core) error {
				for _, name := range core.Scheduler.TickNames() {
					fmt.Println(name)
				}
				return nil
			})
		},
	})

	tick.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Выполнить тик сейчас",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				summary, err := core.Scheduler.RunNow(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", args[0], summary)
				return nil
			})
		},
	})
	return tick
}

func newLoanCmd() *cobra.Command {
	loan := &cobra.Command{Use: "loan", Short: "Кредиты"}

	loan.AddCommand(&cobra.Command{
		Use:   "quote <user_id> <principal> <days>",
		Short: "Расчёт кредита без оформления",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			principal, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			term, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("некорректный срок %q", args[2])
			}
			return withCore(cmd, func(_ context.Context, core *app.Core) error {
				q, err := core.Loans.Quote(id, principal, term)
				if err != nil {
					return err
				}
				fmt.Printf("Сумма:     %s\n", common.FormatMoney(q.Principal))
				fmt.Printf("Ставка:    %s\n", q.RatePercent())
				fmt.Printf("В день:    %s × %d\n", common.FormatMoney(q.Daily), q.Term)
				fmt.Printf("Итого:     %s\n", common.FormatMoney(q.Total))
				return nil
			})
		},
	})
	return loan
}

func newDatasetCmd() *cobra.Command {
	dataset := &cobra.Command{Use: "dataset", Short: "Наборы данных хранилища"}

	dataset.AddCommand(&cobra.Command{
		Use:   "dump <name>",
		Short: "Вывести набор данных как JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				var doc any
				if err := core.Store.Load(ctx, args[0], &doc); err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	})
	return dataset
}

func newAdminCmd() *cobra.Command {
	adm := &cobra.Command{Use: "admin", Short: "Администрирование"}

	adm.AddCommand(&cobra.Command{
		Use:   "hash <password>",
		Short: "Argon2id-хеш пароля для ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashPassword(args[0], admin.DefaultParams)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	})
	return adm
}
