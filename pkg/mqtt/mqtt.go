// Package mqtt runs the embedded broker the mobile app connects to for
// provisioning and telemetry. The inline client publishes status and
// receives configuration writes.
package mqtt

import (
	"context"
	"sync"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

const (
	TopicStatus       = "poolpump/status"
	TopicConfigSet    = "poolpump/config/set"
	TopicConfigResult = "poolpump/config/result"
)

func Start(ctx context.Context, wg *sync.WaitGroup, address string) (*mqttv2.Server, error) {
	wg.Add(1)
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections; the pool network is the trust boundary.
	_ = server.AddHook(new(auth.AllowHook), nil)

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
	err := server.AddListener(tcp)
	if err != nil {
		return server, err
	}

	err = server.Serve()
	if err != nil {
		return server, err
	}

	go func() {
		<-ctx.Done()
		server.Close()
		wg.Done()
	}()
	return server, nil
}
