package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

type snapshotView struct {
	JobID       string `json:"jobId"`
	ItemID      string `json:"itemId"`
	State       string `json:"state"`
	Progress    int    `json:"progress"`
	LastError   string `json:"lastError"`
	DownloadURL string `json:"downloadUrl"`
}

func newStatusCommand() *cobra.Command {
	var watch bool
	var baseURL string

	cmd := &cobra.Command{
		Use:   "status <jobId>",
		Short: "Show the status of a submitted download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			if !watch {
				snap, err := fetchStatus(baseURL, jobID)
				if err != nil {
					return err
				}
				printStatus(snap)
				return nil
			}
			return watchStatus(baseURL, jobID)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "poll until the job reaches a terminal state, showing a progress bar")
	cmd.Flags().StringVar(&baseURL, "server", "http://127.0.0.1:8090", "orchestrator base URL")

	return cmd
}

func fetchStatus(baseURL, jobID string) (snapshotView, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/downloads/%s", baseURL, jobID))
	if err != nil {
		return snapshotView{}, fmt.Errorf("request status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshotView{}, fmt.Errorf("server returned %s", resp.Status)
	}

	var snap snapshotView
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snapshotView{}, fmt.Errorf("decode status response: %w", err)
	}
	return snap, nil
}

func printStatus(snap snapshotView) {
	fmt.Printf("job:      %s\n", snap.JobID)
	fmt.Printf("item:     %s\n", snap.ItemID)
	fmt.Printf("state:    %s\n", snap.State)
	fmt.Printf("progress: %d%%\n", snap.Progress)
	if snap.LastError != "" {
		fmt.Printf("error:    %s\n", snap.LastError)
	}
	if snap.DownloadURL != "" {
		fmt.Printf("download: %s\n", snap.DownloadURL)
	}
}

// watchStatus polls the status endpoint and renders progress on an mpb
// bar until the job reaches Completed or Error.
func watchStatus(baseURL, jobID string) error {
	progress := mpb.New(mpb.WithWidth(50))
	bar := progress.AddBar(100,
		mpb.PrependDecorators(decor.Name(jobID, decor.WCSyncSpaceR)),
		mpb.AppendDecorators(decor.Percentage()),
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	last := 0
	for range ticker.C {
		snap, err := fetchStatus(baseURL, jobID)
		if err != nil {
			return err
		}

		bar.IncrBy(snap.Progress - last)
		last = snap.Progress

		if snap.State == "Completed" || snap.State == "Error" {
			bar.SetTotal(100, true)
			progress.Wait()
			printStatus(snap)
			return nil
		}
	}
	return nil
}
