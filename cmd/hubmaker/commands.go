package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mkerr/hubmaker/internal/config"
	"github.com/mkerr/hubmaker/internal/device"
	"github.com/mkerr/hubmaker/internal/discovery"
	"github.com/mkerr/hubmaker/internal/eventsocket"
	"github.com/mkerr/hubmaker/internal/hub"
	"github.com/mkerr/hubmaker/internal/server"
	"github.com/mkerr/hubmaker/internal/ui"
	"github.com/mkerr/hubmaker/internal/urls"
)

// tokenEnvVar supplies the Maker API access token when --token is not given.
const tokenEnvVar = "HUBMAKER_TOKEN"

// Command flags
var (
	hubName   string
	hostFlag  string
	appIDFlag string
	tokenFlag string

	scanTimeout int
	saveAs      string

	useSocket  bool
	listenAddr string
	listenPort int
	eventURL   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&hubName, "hub", "", "Saved hub profile to use")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Hub hostname, address or URL (overrides the profile)")
	rootCmd.PersistentFlags().StringVar(&appIDFlag, "app-id", "", "Maker API app instance ID (overrides the profile)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Maker API access token (or "+tokenEnvVar+")")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(hubsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(watchCmd)
}

// discoverCmd finds hubs on the network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find hubs on the local network",
	Long: `Find Hubitat Elevation hubs using mDNS discovery.

Discovery only yields hub addresses. The Maker API app ID and access token
still need to be set up on the hub itself; see ` + urls.MakerAPISetup + `.`,
	Example: `  # Scan for 10 seconds (default)
  hubmaker discover

  # Quick scan and save the hub as a profile named "home"
  hubmaker discover --timeout 3 --save home`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
	discoverCmd.Flags().StringVar(&saveAs, "save", "", "Save the discovered hub as a profile with this name")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(nil)
	printer.Println(fmt.Sprintf("Scanning for hubs (timeout: %ds)...", scanTimeout))
	printer.Newline()

	hubs, err := discovery.ScanForHubs(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(hubs) == 0 {
		printer.Println("No hubs found.")
		printer.Newline()
		printer.Println("Troubleshooting:")
		printer.Println("  - Ensure the hub is powered on and on the same network segment")
		printer.Println("  - Check that your network allows multicast (mDNS, UDP 5353)")
		printer.Println("  - Try increasing --timeout for slower networks")
		printer.Println("  - Use --host to specify the hub address manually")
		printer.Println("  - See " + urls.FindingYourHub)
		return nil
	}

	printer.Println(fmt.Sprintf("Found %d hub(s):", len(hubs)))
	printer.Newline()
	for i, h := range hubs {
		printer.Println(fmt.Sprintf("%d. %s", i+1, h.Name))
		printer.PrintDetails(map[string]string{
			"Hostname": h.Hostname,
			"Address":  fmt.Sprintf("%s:%d", h.IP, h.Port),
		})
		printer.Newline()
	}

	if saveAs != "" {
		if len(hubs) > 1 {
			return fmt.Errorf("found %d hubs; --save needs exactly one", len(hubs))
		}
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		registry.TouchHub(saveAs, hubs[0].IP)
		if err := registry.Save(); err != nil {
			return err
		}
		printer.PrintSuccess(fmt.Sprintf("Saved hub %q (%s). Set its app ID with: hubmaker hubs set %s --app-id <id>", saveAs, hubs[0].IP, saveAs))
	}

	return nil
}

// hubsCmd manages saved hub profiles
var hubsCmd = &cobra.Command{
	Use:   "hubs",
	Short: "List and manage saved hub profiles",
	RunE:  runHubsList,
}

var hubsSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a hub profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runHubsSet,
}

var hubsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a hub profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runHubsRemove,
}

var hubsDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default hub profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runHubsDefault,
}

func init() {
	hubsCmd.AddCommand(hubsSetCmd)
	hubsCmd.AddCommand(hubsRemoveCmd)
	hubsCmd.AddCommand(hubsDefaultCmd)
}

func runHubsList(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(nil)
	names := registry.HubNames()
	if len(names) == 0 {
		printer.Println("No saved hubs. Use 'hubmaker discover --save <name>' or 'hubmaker hubs set <name>'.")
		return nil
	}

	defaultName := registry.DefaultHub()
	for _, name := range names {
		profile := registry.GetHub(name)
		line := fmt.Sprintf("%s  %s (app %s)", name, profile.Host, profile.AppID)
		if name == defaultName {
			line += "  [default]"
		}
		printer.Println(line)
	}
	return nil
}

func runHubsSet(cmd *cobra.Command, args []string) error {
	if hostFlag == "" && appIDFlag == "" {
		return fmt.Errorf("nothing to set; pass --host and/or --app-id")
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	profile := registry.EnsureHub(args[0])
	if hostFlag != "" {
		profile.Host = hostFlag
	}
	if appIDFlag != "" {
		profile.AppID = appIDFlag
	}
	if err := registry.Save(); err != nil {
		return err
	}

	ui.NewPrinter(nil).PrintSuccess(fmt.Sprintf("Saved hub %q", args[0]))
	return nil
}

func runHubsRemove(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	if registry.GetHub(args[0]) == nil {
		return fmt.Errorf("no saved hub named %q", args[0])
	}
	registry.RemoveHub(args[0])
	if err := registry.Save(); err != nil {
		return err
	}

	ui.NewPrinter(nil).PrintSuccess(fmt.Sprintf("Removed hub %q", args[0]))
	return nil
}

func runHubsDefault(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	if registry.GetHub(args[0]) == nil {
		return fmt.Errorf("no saved hub named %q", args[0])
	}
	registry.Preferences.DefaultHub = args[0]
	if err := registry.Save(); err != nil {
		return err
	}

	ui.NewPrinter(nil).PrintSuccess(fmt.Sprintf("Default hub is now %q", args[0]))
	return nil
}

// checkCmd verifies hub connectivity and credentials
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the hub is reachable and the token works",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		printer := ui.NewPrinter(nil)
		if err := h.CheckConfig(cmd.Context()); err != nil {
			printer.PrintError(err)
			return err
		}

		printer.PrintSuccess(fmt.Sprintf("Maker API reachable on %s (platform %s)", h.ID(), h.SWVersion()))
		return nil
	},
}

// infoCmd shows hub identity details
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show hub details",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		if err := h.CheckConfig(cmd.Context()); err != nil {
			return err
		}

		printer := ui.NewPrinter(nil)
		printer.PrintHeader(h.Name(), h.ID())
		printer.PrintDetails(map[string]string{
			"Platform": h.SWVersion(),
			"Hardware": h.HWVersion(),
			"MAC":      h.MAC(),
			"UID":      h.UID(),
			"Address":  h.Address(),
		})
		return nil
	},
}

// devicesCmd lists devices exposed through the Maker API
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices exposed through the Maker API",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		if err := h.LoadDevices(cmd.Context()); err != nil {
			return err
		}

		ui.NewPrinter(nil).PrintDeviceList(h.Devices())
		return nil
	},
}

// deviceCmd shows one device in full
var deviceCmd = &cobra.Command{
	Use:   "device <id>",
	Short: "Show one device's attributes and commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		if err := h.RefreshDevice(cmd.Context(), args[0]); err != nil {
			return err
		}

		d, ok := h.Device(args[0])
		if !ok {
			return fmt.Errorf("device %s not found", args[0])
		}
		ui.NewPrinter(nil).PrintDevice(d)
		return nil
	},
}

// sendCmd sends a device command
var sendCmd = &cobra.Command{
	Use:   "send <id> <command> [arg]",
	Short: "Send a command to a device",
	Example: `  hubmaker send 1922 on
  hubmaker send 1922 setLevel 50`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		arg := ""
		if len(args) == 3 {
			arg = args[2]
		}

		raw, err := h.SendCommand(cmd.Context(), args[0], args[1], arg)
		if err != nil {
			return err
		}

		var pretty []byte
		if pretty, err = json.MarshalIndent(json.RawMessage(raw), "", "  "); err != nil {
			pretty = raw
		}
		ui.NewPrinter(nil).Println(string(pretty))
		return nil
	},
}

// refreshCmd reloads one device and shows its current state
var refreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "Reload a device's state from the hub",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		if err := h.RefreshDevice(cmd.Context(), args[0]); err != nil {
			return err
		}

		d, ok := h.Device(args[0])
		if !ok {
			return fmt.Errorf("device %s not found", args[0])
		}
		ui.NewPrinter(nil).PrintDevice(d)
		return nil
	},
}

// modeCmd shows or changes the hub's location mode
var modeCmd = &cobra.Command{
	Use:   "mode [name]",
	Short: "Show or set the hub's location mode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := connectHub()
		if err != nil {
			return err
		}

		if err := h.LoadModes(cmd.Context()); err != nil {
			return err
		}

		printer := ui.NewPrinter(nil)
		if len(args) == 0 {
			active := h.Mode()
			for _, name := range h.Modes() {
				if name == active {
					printer.PrintSuccess(name)
				} else {
					printer.Println("  " + name)
				}
			}
			return nil
		}

		if err := h.SetMode(cmd.Context(), args[0]); err != nil {
			return err
		}
		printer.PrintSuccess(fmt.Sprintf("Requested mode %q; the hub confirms the change with an event", args[0]))
		return nil
	},
}

// watchCmd shows a live feed of hub events
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live device and mode events",
	Long: `Watch live device and mode events from the hub.

By default the hub POSTs events to a local webhook listener, which requires
the hub to be able to reach this machine. With --socket the feed comes from
the hub's event socket instead (see ` + urls.EventSocket + `), which needs no
inbound connectivity but carries all hub events, not just Maker API devices.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&useSocket, "socket", false, "Use the hub's event socket instead of a webhook listener")
	watchCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "Local address for the webhook listener")
	watchCmd.Flags().IntVar(&listenPort, "listen-port", 0, "Local port for the webhook listener (0 = random)")
	watchCmd.Flags().StringVar(&eventURL, "event-url", "", "Callback URL to register instead of the listener's own")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := hubConfig()
	if err != nil {
		return err
	}
	cfg.ListenAddr = listenAddr
	cfg.ListenPort = listenPort
	cfg.EventURL = eventURL

	// Tee every transport event into the watch view's feed before it
	// reaches the hub's own intake.
	feed := make(chan device.Event, 64)
	tee := func(handler func(device.Event)) func(device.Event) {
		return func(ev device.Event) {
			handler(ev)
			select {
			case feed <- ev:
			default:
			}
		}
	}

	// The listener wants the bare host for outbound-interface resolution.
	hubHost := cfg.Host
	if u, err := url.Parse(hubHost); err == nil && u.Host != "" {
		hubHost = u.Host
	}
	if useSocket {
		// The socket client keeps the scheme (https maps to wss).
		socketHost := cfg.Host
		cfg.NewListener = func(handler func(device.Event)) (hub.EventListener, error) {
			return eventsocket.New(socketHost, tee(handler))
		}
	} else {
		addr := listenAddr
		if addr == "" {
			addr = "0.0.0.0"
		}
		cfg.NewListener = func(handler func(device.Event)) (hub.EventListener, error) {
			return server.New(addr, listenPort, hubHost, tee(handler)), nil
		}
	}

	h, err := hub.New(cfg)
	if err != nil {
		return err
	}

	if err := h.Start(cmd.Context()); err != nil {
		h.Stop()
		return err
	}
	defer h.Stop()

	model := ui.NewWatchModel(h.ID(), feed)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

// hubConfig resolves the connection parameters from flags, the environment,
// saved profiles, and (for the token) an interactive prompt.
func hubConfig() (hub.Config, error) {
	host := hostFlag
	appID := appIDFlag

	if host == "" || appID == "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return hub.Config{}, err
		}

		name := hubName
		if name == "" {
			name = registry.DefaultHub()
		}
		if name == "" {
			return hub.Config{}, fmt.Errorf("no hub selected; pass --host and --app-id, or save a profile with 'hubmaker hubs set'")
		}

		profile := registry.GetHub(name)
		if profile == nil {
			return hub.Config{}, fmt.Errorf("no saved hub named %q", name)
		}
		if host == "" {
			host = profile.Host
		}
		if appID == "" {
			appID = profile.AppID
		}
	}

	token, err := resolveToken()
	if err != nil {
		return hub.Config{}, err
	}

	return hub.Config{
		Host:        host,
		AppID:       appID,
		AccessToken: token,
	}, nil
}

// connectHub builds a Hub from the resolved connection parameters.
func connectHub() (*hub.Hub, error) {
	cfg, err := hubConfig()
	if err != nil {
		return nil, err
	}
	return hub.New(cfg)
}

// resolveToken finds the access token: flag, environment, then an
// interactive prompt when stdin is a terminal.
func resolveToken() (string, error) {
	if tokenFlag != "" {
		return tokenFlag, nil
	}
	if token := os.Getenv(tokenEnvVar); token != "" {
		return token, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no access token; pass --token or set %s", tokenEnvVar)
	}

	fmt.Fprint(os.Stderr, "Maker API access token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("no access token entered")
	}
	return string(raw), nil
}
