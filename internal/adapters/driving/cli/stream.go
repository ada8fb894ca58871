package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalandres/sfdx-core/internal/adapters/driven/streaming"
	"github.com/catalandres/sfdx-core/internal/core/domain"
	"github.com/catalandres/sfdx-core/internal/core/services"
	"github.com/catalandres/sfdx-core/internal/logger"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Work with the streaming API",
}

var streamListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print events published on a channel",
	Long: `Handshake with the org's streaming endpoint, subscribe to a channel and
print each event as JSON until --count events arrived, the subscribe
timeout elapsed or the command is interrupted.

Examples:
  sfdx stream listen -u dev --channel /event/Order_Placed__e --count 1
  sfdx stream listen --channel /topic/Accounts --replay -2`,
	RunE: runStreamListen,
}

// Flags for stream listen.
var (
	streamChannel    string
	streamReplay     int64
	streamCount      int
	streamAPIVersion string
	streamTimeout    time.Duration
)

func init() {
	flags := streamListenCmd.Flags()
	flags.StringVarP(&orgTarget, "target-org", "u", "", "Username or alias of the org")
	flags.StringVarP(&streamChannel, "channel", "c", "", "Channel to subscribe to, e.g. /event/Name__e")
	flags.Int64Var(&streamReplay, "replay", streaming.ReplayNew, "Replay id: -1 for new events, -2 for all retained events")
	flags.IntVarP(&streamCount, "count", "n", 0, "Stop after this many events (0 waits until timeout)")
	flags.StringVar(&streamAPIVersion, "api-version", "", "API version (defaults to apiVersion config or the org's latest)")
	flags.DurationVar(&streamTimeout, "timeout", 0, "Subscribe timeout (defaults to the streaming settings)")

	streamCmd.AddCommand(streamListenCmd)
	rootCmd.AddCommand(streamCmd)
}

func runStreamListen(cmd *cobra.Command, _ []string) error {
	if streamChannel == "" {
		return &domain.MissingArgError{Which: "channel"}
	}
	org, err := openOrg(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	apiVersion, err := streamingAPIVersion(cmd, org)
	if err != nil {
		return err
	}

	settings := domain.DefaultRuntimeSettings()
	if settingsService != nil {
		if stored, err := settingsService.Get(); err == nil {
			settings = *stored
		}
	}
	subscribeTimeout := settings.Streaming.SubscribeTimeout
	if streamTimeout > 0 {
		subscribeTimeout = streamTimeout
	}

	logger.Section("Streaming")
	logger.Info("channel %s, api %s, replay %d, timeout %s", streamChannel, apiVersion, streamReplay, subscribeTimeout)

	received := 0
	client, err := streaming.NewClient(ctx, streaming.Options{
		Org:              org,
		APIVersion:       apiVersion,
		Channel:          streamChannel,
		HandshakeTimeout: settings.Streaming.HandshakeTimeout,
		SubscribeTimeout: subscribeTimeout,
		ReplayID:         streamReplay,
		StreamProcessor: func(msg streaming.Message) (streaming.StatusResult, error) {
			received++
			cmd.Println(formatEvent(msg))
			if streamCount > 0 && received >= streamCount {
				return streaming.StatusResult{Completed: true, Payload: received}, nil
			}
			return streaming.StatusResult{}, nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create streaming client: %w", err)
	}

	if _, err := client.Handshake(ctx); err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	cmd.Printf("Listening on %s (api %s)\n", streamChannel, apiVersion)

	_, err = client.Subscribe(ctx, nil)
	switch {
	case err == nil:
		cmd.Printf("Received %d event(s)\n", received)
		return nil
	case errors.Is(err, domain.ErrStreamingTimeout) && streamCount == 0:
		cmd.Printf("Received %d event(s) before the timeout\n", received)
		return nil
	case ctx.Err() != nil:
		cmd.Printf("Interrupted after %d event(s)\n", received)
		return nil
	default:
		client.Disconnect(ctx)
		return fmt.Errorf("subscription failed: %w", err)
	}
}

func streamingAPIVersion(cmd *cobra.Command, org *services.Org) (string, error) {
	if streamAPIVersion != "" {
		return streamAPIVersion, nil
	}
	if configAggregator != nil {
		if v := configAggregator.GetString(domain.ConfigKeyAPIVersion); v != "" {
			return v, nil
		}
	}
	return org.RetrieveMaxAPIVersion(commandContext(cmd))
}

func formatEvent(msg streaming.Message) string {
	out, err := json.Marshal(struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data,omitempty"`
	}{msg.Channel, msg.Data})
	if err != nil {
		return msg.Channel
	}
	return string(out)
}
