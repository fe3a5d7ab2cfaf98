package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"storefront-sync/internal/model"
)

type cartView struct {
	Lines []model.CartLine `json:"lines"`
	Count int              `json:"count"`
}

type countView struct {
	Count int `json:"count"`
}

type wishlistView struct {
	Items []model.WishlistEntry `json:"items"`
	IDs   []string              `json:"ids"`
}

type toggleView struct {
	ProductID string   `json:"productId"`
	Saved     bool     `json:"saved"`
	IDs       []string `json:"ids"`
}

type sessionView struct {
	ID            string      `json:"id"`
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	Audience      string      `json:"audience"`
	CartCount     int         `json:"cartCount"`
	Wishlist      []string    `json:"wishlist"`
}

// === Session ===

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the session, starting one if --session is empty",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v sessionView
		if err := c.do(cmd.Context(), http.MethodGet, "/session", nil, &v); err != nil {
			return err
		}
		if quiet {
			fmt.Fprintln(c.out, v.ID)
			return nil
		}
		printSession(c.out, v)
		return nil
	},
}

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign the session in; the guest cart merges into the account cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginToken == "" {
			loginToken = os.Getenv("SHOP_TOKEN")
		}
		c := commandClient(cmd)
		var v sessionView
		if err := c.do(cmd.Context(), http.MethodPost, "/session/login", map[string]string{"token": loginToken}, &v); err != nil {
			return err
		}
		printSession(c.out, v)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Return the session to guest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v sessionView
		if err := c.do(cmd.Context(), http.MethodPost, "/session/logout", nil, &v); err != nil {
			return err
		}
		printSession(c.out, v)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "shop bearer token (default $SHOP_TOKEN)")
}

// === Cart ===

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v cartView
		if err := c.do(cmd.Context(), http.MethodGet, "/cart", nil, &v); err != nil {
			return err
		}
		printCart(c, v)
		return nil
	},
}

var cartCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of units in the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v countView
		if err := c.do(cmd.Context(), http.MethodGet, "/cart/count", nil, &v); err != nil {
			return err
		}
		fmt.Fprintln(c.out, v.Count)
		return nil
	},
}

var addFlags struct {
	qty   int
	size  string
	color string
}

var cartAddCmd = &cobra.Command{
	Use:   "add PRODUCT_ID",
	Short: "Add units of a product; repeated adds accumulate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		body := map[string]any{"productId": args[0], "quantity": addFlags.qty}
		if addFlags.size != "" {
			body["size"] = addFlags.size
		}
		if addFlags.color != "" {
			body["color"] = addFlags.color
		}
		var v countView
		if err := c.do(cmd.Context(), http.MethodPost, "/cart/items", body, &v); err != nil {
			return err
		}
		printCount(c, v.Count)
		return nil
	},
}

var updateQty int

var cartUpdateCmd = &cobra.Command{
	Use:   "update LINE_ID",
	Short: "Set the quantity of a line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v countView
		path := "/cart/items/" + url.PathEscape(args[0])
		if err := c.do(cmd.Context(), http.MethodPut, path, map[string]int{"quantity": updateQty}, &v); err != nil {
			return err
		}
		printCount(c, v.Count)
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove LINE_ID",
	Short: "Remove a line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v countView
		if err := c.do(cmd.Context(), http.MethodDelete, "/cart/items/"+url.PathEscape(args[0]), nil, &v); err != nil {
			return err
		}
		printCount(c, v.Count)
		return nil
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v countView
		if err := c.do(cmd.Context(), http.MethodDelete, "/cart", nil, &v); err != nil {
			return err
		}
		printCount(c, v.Count)
		return nil
	},
}

func init() {
	cartAddCmd.Flags().IntVar(&addFlags.qty, "qty", 1, "units to add")
	cartAddCmd.Flags().StringVar(&addFlags.size, "size", "", "size selector")
	cartAddCmd.Flags().StringVar(&addFlags.color, "color", "", "color selector")
	cartUpdateCmd.Flags().IntVar(&updateQty, "qty", 1, "new quantity")
}

// === Wishlist ===

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Show saved products (empty for guests)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v wishlistView
		if err := c.do(cmd.Context(), http.MethodGet, "/wishlist", nil, &v); err != nil {
			return err
		}
		if quiet {
			fmt.Fprintln(c.out, strings.Join(v.IDs, " "))
			return nil
		}
		fmt.Fprintf(c.out, "%sWishlist%s (%d saved)\n", colorBold, colorReset, len(v.Items))
		for _, item := range v.Items {
			name := item.ProductID
			if item.Product != nil {
				name = fmt.Sprintf("%s  %s%s%s", item.ProductID, colorGray, item.Product.Name, colorReset)
			}
			fmt.Fprintf(c.out, "  ♥ %s\n", name)
		}
		printSessionID(c)
		return nil
	},
}

var wishlistToggleCmd = &cobra.Command{
	Use:   "toggle PRODUCT_ID",
	Short: "Save a product, or unsave it if already saved (requires login)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		var v toggleView
		path := "/wishlist/" + url.PathEscape(args[0]) + "/toggle"
		if err := c.do(cmd.Context(), http.MethodPost, path, nil, &v); err != nil {
			return err
		}
		if v.Saved {
			fmt.Fprintf(c.out, "%s✓ saved%s %s\n", colorGreen, colorReset, v.ProductID)
		} else {
			fmt.Fprintf(c.out, "%s✗ removed%s %s\n", colorYellow, colorReset, v.ProductID)
		}
		printSessionID(c)
		return nil
	},
}

var wishlistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Unsave every product",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commandClient(cmd)
		if err := c.do(cmd.Context(), http.MethodDelete, "/wishlist", nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s✓ wishlist cleared%s\n", colorGreen, colorReset)
		printSessionID(c)
		return nil
	},
}

// === Events ===

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream change events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := commandClient(cmd)
		return c.stream(ctx, "/events", func(ev sseEvent) error {
			printEvent(c.out, ev)
			return nil
		})
	},
}

func printEvent(w io.Writer, ev sseEvent) {
	var data map[string]any
	if json.Unmarshal([]byte(ev.Data), &data) != nil {
		fmt.Fprintf(w, "%s%s%s %s\n", colorCyan, ev.Name, colorReset, ev.Data)
		return
	}
	var parts []string
	for _, k := range []string{"session", "audience", "at"} {
		if v, ok := data[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	fmt.Fprintf(w, "%s%s%s %s%s%s\n", colorCyan, ev.Name, colorReset, colorGray, strings.Join(parts, " "), colorReset)
}

// === Output ===

func commandClient(cmd *cobra.Command) *client {
	if cmd.Context() == nil {
		cmd.SetContext(context.Background())
	}
	c := newClient(serverURL, sessionID, cmd.OutOrStdout())
	c.quiet = quiet
	c.verbose = verbose
	return c
}

func printCart(c *client, v cartView) {
	if c.quiet {
		fmt.Fprintln(c.out, v.Count)
		return
	}
	fmt.Fprintf(c.out, "%sCart%s (%d items)\n", colorBold, colorReset, v.Count)
	for _, l := range v.Lines {
		name := l.ProductID
		if l.Product != nil {
			name = fmt.Sprintf("%s  %s%s%s", l.ProductID, colorGray, l.Product.Name, colorReset)
		}
		variant := ""
		if l.Size != "" || l.Color != "" {
			variant = fmt.Sprintf(" [%s]", strings.Trim(l.Size+"/"+l.Color, "/"))
		}
		fmt.Fprintf(c.out, "  %d × %s%s %s(line %s)%s\n", l.Quantity, name, variant, colorGray, l.ID, colorReset)
	}
	printSessionID(c)
}

func printCount(c *client, n int) {
	if c.quiet {
		fmt.Fprintln(c.out, n)
		return
	}
	fmt.Fprintf(c.out, "%s✓%s cart now has %d items\n", colorGreen, colorReset, n)
	printSessionID(c)
}

func printSession(w io.Writer, v sessionView) {
	state := "guest"
	if v.Authenticated && v.User != nil {
		state = "signed in as " + v.User.ID
		if v.User.Email != "" {
			state += " <" + v.User.Email + ">"
		}
	}
	fmt.Fprintf(w, "%sSession%s %s\n", colorBold, colorReset, v.ID)
	fmt.Fprintf(w, "  %s\n", state)
	fmt.Fprintf(w, "  audience: %s\n", v.Audience)
	fmt.Fprintf(w, "  cart:     %d items\n", v.CartCount)
	fmt.Fprintf(w, "  wishlist: %d saved\n", len(v.Wishlist))
}

func printSessionID(c *client) {
	fmt.Fprintf(c.out, "%ssession: %s%s\n", colorGray, c.session, colorReset)
}
