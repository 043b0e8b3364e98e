// Command mattibud is the combined CLI: it can run the API server, run the
// conversion worker, or convert a single PDF from the command line without
// touching Postgres or Redis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Digitalmx/mattibud-web/internal/api"
	"github.com/Digitalmx/mattibud-web/internal/app"
	"github.com/Digitalmx/mattibud-web/internal/pdfconvert"
	"github.com/Digitalmx/mattibud-web/internal/storage"
	"github.com/Digitalmx/mattibud-web/internal/stores"
	"github.com/Digitalmx/mattibud-web/internal/worker"
)

func main() {
	root := &cobra.Command{
		Use:          "mattibud",
		Short:        "Store catalog backend with PDF to image conversion",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), workerCmd(), convertCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := app.Bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var queueClient *asynq.Client
			if !inline {
				queueClient = asynq.NewClient(asynq.RedisClientOpt{
					Addr:     a.Cfg.RedisAddr,
					Password: a.Cfg.RedisPassword,
					DB:       a.Cfg.RedisDB,
				})
				defer queueClient.Close()
			}

			srv := api.New(a.Cfg, a.Service, a.Blobs, queueClient, a.Log)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "convert PDFs inside the upload request instead of queueing")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the PDF conversion worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := app.Bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := asynq.NewServer(
				asynq.RedisClientOpt{
					Addr:     a.Cfg.RedisAddr,
					Password: a.Cfg.RedisPassword,
					DB:       a.Cfg.RedisDB,
				},
				asynq.Config{Concurrency: a.Cfg.Workers},
			)
			go func() {
				<-ctx.Done()
				srv.Shutdown()
			}()

			processor := worker.NewProcessor(a.Service, a.Log)
			return srv.Run(processor.Handler())
		},
	}
}

func convertCmd() *cobra.Command {
	var outDir, name string
	cmd := &cobra.Command{
		Use:   "convert <pdf-file>",
		Short: "Convert one PDF to page images on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read PDF: %w", err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			log := logrus.New()
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

			blobs, err := storage.NewLocal(outDir)
			if err != nil {
				return fmt.Errorf("open output dir: %w", err)
			}

			images := stores.NewMemoryImages()
			pipeline := pdfconvert.NewPipeline(blobs, images, pdfconvert.ExecRunner{}, log)
			svc := stores.NewService(stores.NewMemoryStores(), images, blobs, pipeline, log)

			store, err := svc.CreateStore(ctx, stores.CreateStoreInput{Name: name})
			if err != nil {
				return err
			}
			pdfPath, err := svc.StagePDF(ctx, store.ID, filepath.Base(args[0]), content)
			if err != nil {
				return err
			}
			outcome, err := svc.ProcessPDF(ctx, store.ID, pdfPath)
			if err != nil {
				return err
			}

			fmt.Println(outcome.Message("converted"))
			fmt.Printf("strategy=%s pages=%d expected=%d\n", outcome.Strategy, outcome.Pages, outcome.Expected)
			_, pages, err := svc.GetStore(ctx, store.ID)
			if err != nil {
				return err
			}
			for _, p := range pages {
				fmt.Println(filepath.Join(outDir, p.ImagePath))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "./out", "directory to write page images into")
	cmd.Flags().StringVar(&name, "name", "", "display name used on placeholder pages")
	return cmd
}
