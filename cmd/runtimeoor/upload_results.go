package main

import (
	"fmt"

	"github.com/ethpandaops/runtimeoor/pkg/upload"
	"github.com/spf13/cobra"
)

var uploadFiles []string

var uploadResultsCmd = &cobra.Command{
	Use:   "upload-results",
	Short: "Upload result files to remote storage",
	Long:  `Upload saved result files to S3-compatible storage using the config file settings.`,
	RunE:  runUploadResults,
}

func init() {
	rootCmd.AddCommand(uploadResultsCmd)
	uploadResultsCmd.Flags().StringSliceVar(&uploadFiles, "file", nil,
		"Result file to upload (repeatable)")

	_ = uploadResultsCmd.MarkFlagRequired("file")
}

func runUploadResults(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s3cfg := cfg.Benchmark.ResultsUpload.S3
	if !s3cfg.Enabled {
		return fmt.Errorf("S3 upload is not enabled in config")
	}

	uploader, err := upload.NewS3Uploader(log, &s3cfg)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	ctx := cmd.Context()

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("S3 preflight check failed: %w", err)
	}

	for _, path := range uploadFiles {
		key, err := uploader.UploadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}

		log.WithField("key", key).Info("Result file uploaded")
	}

	return nil
}
