// Command coap-echo-server is a minimal demonstration endpoint: it
// answers /.well-known/core with a CoRE Link Format directory listing
// and serves an observable /temp resource that ticks a synthetic
// reading out to every registered observer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	coap "github.com/GiterLab/go-coap-observe"
	"gopkg.in/yaml.v2"
)

// fileConfig is the on-disk shape loaded with gopkg.in/yaml.v2, the
// same library and load-once-at-startup idiom junbin-yang-dsoftbus-go's
// pkg/utils/config uses. Zero-valued fields fall back to
// coap.DefaultConfig's values rather than zeroing them out.
type fileConfig struct {
	ListenPort       int   `yaml:"listen_port"`
	Debug            bool  `yaml:"debug"`
	BufMaxSize       int   `yaml:"buf_max_size"`
	MaxObservers     int   `yaml:"max_observers"`
	ObserverLeaseMs  int64 `yaml:"observer_lease_ms"`
	NotifyIntervalMs int64 `yaml:"notify_interval_ms"`
}

func loadFileConfig(path string) fileConfig {
	var fc fileConfig
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc
		}
		panic(err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		panic(err)
	}
	return fc
}

func buildConfig(fc fileConfig) coap.Config {
	c := coap.DefaultConfig()
	if fc.ListenPort != 0 {
		c.DefaultPort = fc.ListenPort
	}
	if fc.BufMaxSize != 0 {
		c.BufMaxSize = fc.BufMaxSize
	}
	if fc.MaxObservers != 0 {
		c.MaxObservers = fc.MaxObservers
	}
	if fc.ObserverLeaseMs != 0 {
		c.ObserverLeaseMs = fc.ObserverLeaseMs
	}
	return c
}

const wellKnownCore = "</temp>;obs;rt=\"temperature-c\";if=\"sensor\""

func serveWellKnownCore(e *coap.Endpoint, peerAddr string, peerPort int, m *coap.Message) {
	if _, err := e.SendResponse(peerAddr, peerPort, m.MessageID, []byte(wellKnownCore),
		coap.Content, coap.AppLinkFormat, m.Token); err != nil {
		coap.GLog.Warning("[coap-echo-server] /.well-known/core reply to %s:%d failed: %v", peerAddr, peerPort, err)
	}
}

// temperatureResource tracks the latest synthetic reading and answers
// both plain GETs and Observe (de)registrations on /temp.
type temperatureResource struct {
	last []byte
}

func (t *temperatureResource) ServeCOAP(e *coap.Endpoint, peerAddr string, peerPort int, m *coap.Message) {
	if m.Code != coap.GET {
		if _, err := e.SendResponse(peerAddr, peerPort, m.MessageID, nil, coap.MethodNotAllowed, coap.MediaTypeNone, m.Token); err != nil {
			coap.GLog.Warning("[coap-echo-server] method-not-allowed reply to %s:%d failed: %v", peerAddr, peerPort, err)
		}
		return
	}

	seq, isObserve := m.ObserveValue()
	switch {
	case isObserve && seq == 1:
		e.Observers().RemoveObserver(peerAddr, peerPort, "temp", m.Token)
		if _, err := e.SendResponse(peerAddr, peerPort, m.MessageID, t.last, coap.Content, coap.TextPlain, m.Token); err != nil {
			coap.GLog.Warning("[coap-echo-server] deregister reply to %s:%d failed: %v", peerAddr, peerPort, err)
		}
	case isObserve:
		if !e.Observers().AddObserver(peerAddr, peerPort, "temp", m.Token) {
			if _, err := e.SendResponse(peerAddr, peerPort, m.MessageID, nil, coap.ServiceUnavailable, coap.MediaTypeNone, m.Token); err != nil {
				coap.GLog.Warning("[coap-echo-server] observer-table-full reply to %s:%d failed: %v", peerAddr, peerPort, err)
			}
			return
		}
		if _, err := e.SendObserveResponse(peerAddr, peerPort, m.MessageID, t.last, coap.Content, coap.TextPlain, m.Token, 0); err != nil {
			coap.GLog.Warning("[coap-echo-server] observe-register reply to %s:%d failed: %v", peerAddr, peerPort, err)
		}
	default:
		if _, err := e.SendResponse(peerAddr, peerPort, m.MessageID, t.last, coap.Content, coap.TextPlain, m.Token); err != nil {
			coap.GLog.Warning("[coap-echo-server] plain-get reply to %s:%d failed: %v", peerAddr, peerPort, err)
		}
	}
}

// reading produces a deterministic, slowly-varying value so the demo
// has something worth observing without depending on real hardware.
func reading(tick int) []byte {
	c := 20 + 3*math.Sin(float64(tick)/6)
	return []byte(fmt.Sprintf("%.1f", c))
}

func main() {
	configPath := flag.String("config", "coap-echo-server.yml", "path to a YAML config file (optional)")
	flag.Parse()

	fc := loadFileConfig(*configPath)
	config := buildConfig(fc)
	coap.Debug(fc.Debug)

	socket := coap.NewUDPSocket(config.BufMaxSize, config.PollWindow)
	endpoint := coap.NewEndpoint(socket, config, nil)
	if err := endpoint.Start(); err != nil {
		coap.GLog.Error("[coap-echo-server] bind failed: %v", err)
		os.Exit(1)
	}
	defer endpoint.Close()

	temp := &temperatureResource{last: reading(0)}
	endpoint.HandleFunc(".well-known/core", serveWellKnownCore)
	endpoint.Handle("temp", temp)

	notifyInterval := time.Duration(fc.NotifyIntervalMs) * time.Millisecond
	if notifyInterval <= 0 {
		notifyInterval = 2 * time.Second
	}

	// Threaded through the run loop the way GiterLab-go-secoap's Secoap
	// carries a context.Context, but here it is the cancellation signal
	// itself rather than stored state: SIGINT/SIGTERM cancels ctx, and
	// the loop below exits between Poll() calls instead of being killed
	// mid-datagram.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runLoop(ctx, endpoint, temp, notifyInterval, config.PollWindow)
}

// runLoop is the single-threaded cooperative loop spec.md section 5
// requires: one goroutine alternates between draining the socket and
// pushing out observer notifications, rather than handing either job
// to a background goroutine. It returns as soon as ctx is cancelled.
func runLoop(ctx context.Context, endpoint *coap.Endpoint, temp *temperatureResource, notifyInterval, pollWindow time.Duration) {
	ticker := time.NewTicker(notifyInterval)
	defer ticker.Stop()

	tick := 0
	for {
		endpoint.Poll()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			temp.last = reading(tick)
			endpoint.Notify("temp", temp.last, coap.TextPlain)
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollWindow):
		}
	}
}
