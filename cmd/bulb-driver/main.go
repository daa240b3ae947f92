// Command bulb-driver receives light commands over MQTT and drives the bulb's
// channels with the matching duty cycles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/sweeney/bulb-driver/internal/color"
	"github.com/sweeney/bulb-driver/internal/config"
	"github.com/sweeney/bulb-driver/internal/gpio"
	"github.com/sweeney/bulb-driver/internal/logic"
	"github.com/sweeney/bulb-driver/internal/mqtt"
	"github.com/sweeney/bulb-driver/internal/status"
	"github.com/sweeney/bulb-driver/internal/web"
)

// housekeeping is how often heartbeat and connection state are checked.
const housekeeping = time.Second

// commandQueue bounds commands waiting for the run loop.
const commandQueue = 32

type options struct {
	configPath string
	broker     string
	prefix     string
	httpAddr   string
	heartbeat  time.Duration
	logLevel   string
	logJSON    bool
	translate  string
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	o := &options{}
	fs := pflag.NewFlagSet("bulb-driver", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "Path to YAML configuration file")
	fs.StringVar(&o.broker, "broker", "", "MQTT broker address (overrides config)")
	fs.StringVar(&o.prefix, "topic-prefix", "", "MQTT topic prefix (overrides config)")
	fs.StringVar(&o.httpAddr, "http", "", "HTTP status address, empty to disable (overrides config)")
	fs.DurationVar(&o.heartbeat, "heartbeat", 0, "Heartbeat interval, 0 to disable (overrides config)")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.BoolVar(&o.logJSON, "log-json", false, "Log as JSON instead of console text")
	fs.StringVar(&o.translate, "translate", "", "Resolve a JSON light command, print the duties and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs, nil
}

// applyOverrides copies explicitly set flags over the file configuration.
func applyOverrides(cfg *config.Config, o *options, fs *pflag.FlagSet) {
	if fs.Changed("broker") {
		cfg.MQTT.Broker = o.broker
	}
	if fs.Changed("topic-prefix") {
		cfg.MQTT.TopicPrefix = o.prefix
	}
	if fs.Changed("http") {
		cfg.HTTP.Addr = o.httpAddr
	}
	if fs.Changed("heartbeat") {
		cfg.Heartbeat = config.Duration(o.heartbeat)
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if fs.Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}
}

func main() {
	o, fs, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	applyOverrides(cfg, o, fs)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogging(cfg.Log)

	if o.translate != "" {
		if err := printTranslation(os.Stdout, cfg.Calibration, o.translate); err != nil {
			log.Fatal().Err(err).Msg("translate")
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors,
		})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// printTranslation resolves one command from the default request and prints
// the mode and duties.
func printTranslation(w io.Writer, cal color.Calibration, payload string) error {
	cmd, err := mqtt.ParseCommand([]byte(payload))
	if err != nil {
		return err
	}
	tr := color.NewTranslator(cal)
	if err := tr.SetLightColorValues(cmd.Apply(mqtt.DefaultRequest())); err != nil {
		return err
	}
	out := tr.Outputs()
	fmt.Fprintf(w, "mode: %s\n", tr.Mode())
	for _, ch := range color.Channels {
		fmt.Fprintf(w, "%-6s %.4f\n", ch, out.Duty(ch))
	}
	return nil
}

func run(cfg *config.Config) error {
	writer, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.Pins.Map(), cfg.GPIO.Period.Duration())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer writer.Close()

	client, err := mqtt.NewRealClient(mqtt.ClientConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		BufferSize:  cfg.MQTT.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
		HeartbeatMs: cfg.Heartbeat.Duration().Milliseconds(),
		PWMPeriodUs: cfg.GPIO.Period.Duration().Microseconds(),
		Calibration: cfg.Calibration,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(client.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Error().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	commands := make(chan []byte, commandQueue)
	if err := client.Subscribe(queueCommand(commands)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	log.Info().
		Str("broker", cfg.MQTT.Broker).
		Str("topic_prefix", cfg.MQTT.TopicPrefix).
		Dur("pwm_period", cfg.GPIO.Period.Duration()).
		Dur("heartbeat", cfg.Heartbeat.Duration()).
		Msg("started")

	ticker := time.NewTicker(housekeeping)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &driver{
		translator: color.NewTranslator(cfg.Calibration),
		writer:     writer,
		publisher:  client,
		mqttStatus: client,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat.Duration(),
		now:        time.Now,
	}
	return d.runLoop(commands, ticker.C, sigCh)
}

// queueCommand returns a handler that hands payloads to the run loop. The
// handler runs on the MQTT client's goroutine and must not block it.
func queueCommand(commands chan<- []byte) mqtt.CommandHandler {
	return func(payload []byte) {
		select {
		case commands <- append([]byte(nil), payload...):
		default:
			log.Warn().Int("queue", cap(commands)).Msg("command queue full, dropping command")
		}
	}
}

// driver owns the translator and everything fed from its result. Only the
// run loop goroutine touches it.
type driver struct {
	translator *color.Translator
	detector   *logic.Detector
	writer     gpio.Writer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
}

func (d *driver) runLoop(commands <-chan []byte, tick <-chan time.Time, sig <-chan os.Signal) error {
	d.detector = logic.NewDetector(d.now())

	// Start dark until the first command arrives.
	d.apply(mqtt.DefaultRequest(), d.now())

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshConnection()
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Error().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case payload := <-commands:
			t := d.now()
			cmd, err := mqtt.ParseCommand(payload)
			if err != nil {
				log.Warn().Err(err).Bytes("payload", payload).Msg("ignoring invalid command")
				continue
			}
			d.apply(cmd.Apply(d.translator.Values()), t)

		case <-tick:
			t := d.now()
			d.refreshConnection()

			hb := d.detector.CheckHeartbeat(t, d.heartbeat)
			if hb == nil {
				continue
			}
			log.Info().
				Dur("uptime", hb.Uptime).
				Int("off", hb.Counts.Off).
				Int("night_light", hb.Counts.NightLight).
				Int("white_light", hb.Counts.WhiteLight).
				Int("rgb_light", hb.Counts.RGBLight).
				Int("faults", hb.Counts.Faults).
				Msg("heartbeat")

			hbEvent := mqtt.SystemEvent{
				Timestamp: hb.Timestamp,
				Event:     "HEARTBEAT",
			}
			if d.tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					d.tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := d.publisher.PublishSystem(hbEvent); err != nil {
				log.Error().Err(err).Msg("heartbeat publish error")
			}
		}
	}
}

// apply resolves v and pushes the result to the GPIO lines, the status
// tracker and the state topic. An unresolvable request is logged, counted and
// reported as a FAULT event; the lines keep their previous duties.
func (d *driver) apply(v color.LightColorValues, t time.Time) {
	if err := d.translator.SetLightColorValues(v); err != nil {
		if !errors.Is(err, color.ErrModeUnresolved) {
			log.Error().Err(err).Msg("translate")
			return
		}
		d.detector.RecordFault()
		log.Error().Err(err).
			Bool("on", v.IsOn).
			Float64("brightness", v.Brightness).
			Str("color_mode", string(v.ColorMode)).
			Msg("light mode resolution incomplete")

		fault := mqtt.SystemEvent{Timestamp: t, Event: "FAULT", Reason: err.Error()}
		if d.tracker != nil {
			d.tracker.SetFault(t, err.Error(), d.detector.CountsSnapshot())
			fault.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "FAULT", err.Error())
		}
		if pubErr := d.publisher.PublishSystem(fault); pubErr != nil {
			log.Error().Err(pubErr).Msg("failed to publish fault event")
		}
		return
	}

	mode := d.translator.Mode()
	out := d.translator.Outputs()

	if err := d.writer.Write(out); err != nil {
		log.Error().Err(err).Msg("gpio write error")
		// Don't crash on write failure
	}

	if event := d.detector.Process(logic.Input{Mode: mode, Time: t}); event != nil {
		log.Info().Str("from", string(event.From)).Str("to", string(event.To)).Msg("mode change")
	}
	log.Debug().
		Str("mode", string(mode)).
		Float64("brightness", v.Brightness).
		Interface("duties", out).
		Msg("light updated")

	if d.tracker != nil {
		d.tracker.Update(v, mode, out, d.detector.IsBaselined(), d.detector.CountsSnapshot())
	}

	state := mqtt.StateEvent{Timestamp: t, Values: v, Mode: mode, Outputs: out}
	if err := d.publisher.PublishState(state); err != nil {
		log.Error().Err(err).Msg("state publish error")
	}
}

func (d *driver) refreshConnection() {
	if d.tracker != nil && d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		d.tracker.SetMQTTDropped(d.mqttStatus.Dropped())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
