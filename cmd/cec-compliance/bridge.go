package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/cec-protocol/cec-go/internal/testharness/mock"
	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/discovery"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// BridgeOptions holds flags for the bridge command.
type BridgeOptions struct {
	*RootOptions
	Listen    string
	Devices   []string
	Language  string
	Advertise bool
	Instance  string
	Interface string
}

func newBridgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BridgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Serve a simulated CEC bus",
		Long: `Serve a simulated CEC bus over the bridge protocol. The adapter claims
Playback Device 1; the simulated followers answer like compliant devices.

Use it to try the tool, or to check a bridge client, without hardware.

Example:
  cec-compliance bridge --listen 127.0.0.1:9526 --devices tv,playback
  cec-compliance bridge --advertise --instance "lab bench" --language deu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", fmt.Sprintf(":%d", transport.DefaultPort), "listen address")
	cmd.Flags().StringSliceVar(&opts.Devices, "devices", []string{"tv", "playback", "recorder"}, "simulated followers (tv, playback, recorder)")
	cmd.Flags().StringVar(&opts.Language, "language", "eng", "TV menu language (ISO 639 code)")
	cmd.Flags().BoolVar(&opts.Advertise, "advertise", false, "advertise the bridge over mDNS")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "mDNS instance name")
	cmd.Flags().StringVar(&opts.Interface, "interface", "", "network interface for mDNS (default all)")

	return cmd
}

// menuLanguage normalizes a language code to the three letter ISO 639-2
// code carried by Set Menu Language.
func menuLanguage(code string) (string, error) {
	base, err := language.ParseBase(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", code, err)
	}
	iso3 := base.ISO3()
	if len(iso3) != 3 {
		return "", fmt.Errorf("language %q has no three letter code", code)
	}
	return iso3, nil
}

// simulatedBus builds the followers named in devices.
func simulatedBus(devices []string, lang string) (*mock.Controller, error) {
	bus := mock.NewController(cec.AddrPlayback1, 0x1000)
	for _, name := range devices {
		var d *mock.Device
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tv":
			d = mock.NewTV(cec.AddrTV, 0x0000)
			d.Language = lang
		case "playback":
			d = mock.NewPlayback(cec.AddrPlayback2, 0x2000)
		case "recorder":
			d = mock.NewRecorder(cec.AddrRecord1, 0x3000)
		default:
			return nil, fmt.Errorf("unknown simulated device %q", name)
		}
		if err := bus.AddDevice(d); err != nil {
			return nil, err
		}
	}
	return bus, nil
}

func runBridge(cmd *cobra.Command, opts *BridgeOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.LogFormat, true)

	lang, err := menuLanguage(opts.Language)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	bus, err := simulatedBus(opts.Devices, lang)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	defer bus.Close()

	srv, err := transport.NewServer(transport.ServerConfig{
		Address: opts.Listen,
		Adapter: bus,
		Logger:  logger,
		OnConnect: func(c *transport.ServerConn) {
			logger.Info("client connected", "remote", c.RemoteAddr())
		},
		OnDisconnect: func(c *transport.ServerConn) {
			logger.Info("client disconnected", "remote", c.RemoteAddr())
		},
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create bridge", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start bridge", err)
	}
	defer srv.Stop()

	if opts.Advertise {
		port, err := listenPort(srv.Addr())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to advertise bridge", err)
		}
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{Interface: opts.Interface})
		info := &discovery.BridgeInfo{
			InstanceName: opts.Instance,
			Port:         port,
			PhysAddr:     bus.PhysAddr,
			Addresses:    bus.Local.Bit(),
			OSDName:      "cec-compliance",
			Version:      cec.Version2_0,
			Adapter:      "simulated",
		}
		if err := adv.Advertise(ctx, info); err != nil {
			return WrapExitError(ExitFailure, "failed to advertise bridge", err)
		}
		defer adv.Stop()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Simulated CEC bus on %s (%s)\n", srv.Addr(), strings.Join(opts.Devices, ", "))
	<-ctx.Done()
	return nil
}

func listenPort(addr net.Addr) (uint16, error) {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0, err
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}
