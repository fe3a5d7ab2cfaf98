// shopctl is a CLI for exercising a storefront-sync server from a terminal.
// Each command performs a single operation, so it composes in scripts. The
// session id is printed after every call; pass it back with --session (or
// SHOPCTL_SESSION) to keep working on the same cart.
//
// Examples:
//
//	SID=$(shopctl session -q)
//	shopctl --session $SID cart add shirt-1 --qty 2 --size M
//	shopctl --session $SID events &
//	shopctl --session $SID login --token $TOKEN
//	shopctl --session $SID wishlist toggle ring-1
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags (apply to all commands)
var (
	serverURL string
	sessionID string
	quiet     bool
	verbose   bool
	noColor   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorBlue, colorCyan, colorGray, colorBold = "", "", "", ""
}

var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "Drive a storefront-sync server from the terminal",
	Long: `shopctl talks to a storefront-sync server the way a storefront view does.

Available commands:
  session  - Show (or start) the session
  cart     - Show and edit the cart
  wishlist - Show and toggle saved products
  login    - Sign the session in with a shop token
  logout   - Return the session to guest
  events   - Stream cart and wishlist change events`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			disableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOrDefault("SHOPCTL_SERVER", "http://localhost:8080"), "storefront-sync base URL")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", os.Getenv("SHOPCTL_SESSION"), "session id from an earlier call")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only the essential value")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print requests and responses")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cartCmd.AddCommand(cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd, cartCountCmd)
	wishlistCmd.AddCommand(wishlistToggleCmd, wishlistClearCmd)
	rootCmd.AddCommand(sessionCmd, cartCmd, wishlistCmd, loginCmd, logoutCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
