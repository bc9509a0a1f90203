package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expertdesk/internal/clientsync"
	"expertdesk/internal/platform/logger"
	"expertdesk/internal/request/handler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	server   string
	clientID string
	retries  int
}

func (f *rootFlags) syncer(opts ...clientsync.SyncerOption) (*clientsync.Syncer, *clientsync.Store, error) {
	id, err := uuid.Parse(f.clientID)
	if err != nil {
		return nil, nil, fmt.Errorf("--client-id: %w", err)
	}
	api := clientsync.NewClient(f.server, clientsync.WithRetry(clientsync.DefaultBaseDelay, f.retries))
	store := clientsync.NewStore()
	opts = append(opts, clientsync.WithSyncLogger(logger.New()))
	return clientsync.NewSyncer(api, store, id, opts...), store, nil
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "deskclient",
		Short:        "Mirror and submit expertdesk requests for one client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.server, "server", "http://localhost:8080", "expertdesk base URL")
	root.PersistentFlags().StringVar(&flags.clientID, "client-id", "", "client whose requests are mirrored")
	root.PersistentFlags().IntVar(&flags.retries, "retries", clientsync.DefaultMaxRetries, "retries for failed calls")
	_ = root.MarkPersistentFlagRequired("client-id")

	root.AddCommand(newListCmd(flags), newWatchCmd(flags), newSubmitCmd(flags))
	return root
}

func newListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Fetch the client's requests once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, store, err := flags.syncer()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := syncer.Resync(cmd.Context()); err != nil {
				return err
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Resync periodically and print every change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			syncer, store, err := flags.syncer(clientsync.WithInterval(interval))
			if err != nil {
				return err
			}
			defer store.Close()
			updates, unsubscribe, err := store.Subscribe()
			if err != nil {
				return err
			}
			defer unsubscribe()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return syncer.Run(ctx)
			})
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case snap, ok := <-updates:
						if !ok {
							return nil
						}
						if err := printSnapshot(cmd.OutOrStdout(), snap); err != nil {
							return err
						}
					}
				}
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "resync interval")
	return cmd
}

func newSubmitCmd(flags *rootFlags) *cobra.Command {
	var (
		serviceID   string
		planID      string
		amount      string
		description string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a request optimistically and wait for the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := submitBody(serviceID, planID, amount, description)
			if err != nil {
				return err
			}
			syncer, store, err := flags.syncer()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := syncer.Submit(cmd.Context(), body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "submitted %s\n", entry.ID())
			syncer.Wait()

			select {
			case failure := <-syncer.Failures():
				return failure
			default:
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&serviceID, "service-id", "", "catalogue service to order")
	cmd.Flags().StringVar(&planID, "pricing-plan-id", "", "pricing plan to order")
	cmd.Flags().StringVar(&amount, "amount", "", "amount; defaults to the catalogue price")
	cmd.Flags().StringVar(&description, "description", "", "free text for the expert")
	cmd.MarkFlagsOneRequired("service-id", "pricing-plan-id")
	cmd.MarkFlagsMutuallyExclusive("service-id", "pricing-plan-id")
	return cmd
}

func submitBody(serviceID, planID, amount, description string) (*handler.CreateRequestBody, error) {
	body := &handler.CreateRequestBody{Description: description}
	if serviceID != "" {
		id, err := uuid.Parse(serviceID)
		if err != nil {
			return nil, fmt.Errorf("--service-id: %w", err)
		}
		body.ServiceID = &id
	}
	if planID != "" {
		id, err := uuid.Parse(planID)
		if err != nil {
			return nil, fmt.Errorf("--pricing-plan-id: %w", err)
		}
		body.PricingPlanID = &id
	}
	if amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("--amount: %w", err)
		}
		body.Amount = d
	}
	return body, nil
}

func printSnapshot(w io.Writer, snap []clientsync.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
