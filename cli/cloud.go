package cli

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/afkcompanion/afkcli/commands"
	"github.com/afkcompanion/afkcli/companion"
	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/spf13/cobra"
)

const loginTimeout = 5 * time.Minute

type CloudStatus struct {
	Enabled    bool   `json:"enabled"`
	AppEnabled bool   `json:"app_enabled"`
	Target     string `json:"target,omitempty"`
	LoggedIn   bool   `json:"logged_in"`
	Available  bool   `json:"available"`
	Verified   *bool  `json:"verified,omitempty"`
	Error      string `json:"error,omitempty"`
}

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Cloud sync commands",
	Long:  `Commands for managing settings and statistics sync across devices.`,
}

var cloudLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the cloud sync service",
	Long:  `Opens the login page of the configured cloud.url in your default browser. Use --token to store a token directly.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cloudToken != "" {
			if err := storage.SaveToken(cloudToken); err != nil {
				return err
			}
			fmt.Println("Token stored")
			return nil
		}

		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		if cfg.Cloud.URL == "" {
			return fmt.Errorf("cloud.url is not configured; set it in %s or %s", cfg.Path, "AFKCLI_CLOUD_URL")
		}

		return browserLogin(cmd.Context(), cfg.Cloud.URL)
	},
}

func browserLogin(ctx context.Context, cloudURL string) error {
	// generate csrf nonce
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return fmt.Errorf("failed to generate csrf nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	callbackErr := make(chan error, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux}

	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		token, err := parseLoginCallback(r, nonce)
		if err == nil {
			err = storage.SaveToken(token)
		}
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, err.Error())
		} else {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintln(w, "<html><body><h2>Login successful!</h2><p>You can close this window.</p></body></html>")
		}
		select {
		case callbackErr <- err:
		default:
		}
		go srv.Shutdown(context.Background())
	})

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			callbackErr <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	loginURL, err := buildLoginURL(cloudURL, port, nonce)
	if err != nil {
		_ = srv.Close()
		return err
	}

	fmt.Printf("Your browser has been opened to visit:\n\n\t%s\n\n", loginURL)

	var openCmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		openCmd = exec.Command("open", loginURL)
	case "linux":
		openCmd = exec.Command("xdg-open", loginURL)
	case "windows":
		openCmd = exec.Command("cmd", "/c", "start", loginURL)
	default:
		_ = srv.Close()
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	// the browser must outlive afkcli
	utils.ConfigureDetachedProcAttr(openCmd)
	if err := openCmd.Start(); err != nil {
		_ = srv.Close()
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = openCmd.Wait() }()

	select {
	case err := <-callbackErr:
		if err != nil {
			return err
		}
	case <-time.After(loginTimeout):
		_ = srv.Close()
		return fmt.Errorf("timed out waiting for login")
	case <-ctx.Done():
		_ = srv.Close()
		return ctx.Err()
	}

	fmt.Println("✅ Successfully logged in")
	return nil
}

func buildLoginURL(cloudURL string, port int, nonce string) (string, error) {
	base, err := url.Parse(cloudURL)
	if err != nil {
		return "", fmt.Errorf("invalid cloud url: %w", err)
	}
	u := base.JoinPath("login")
	q := url.Values{
		"redirectUri":  {fmt.Sprintf("http://localhost:%d/oauth/callback", port)},
		"csrf":         {nonce},
		"agent":        {"afkcli"},
		"agentVersion": {GetVersion()},
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseLoginCallback checks the csrf echoed in state and returns the issued token
func parseLoginCallback(r *http.Request, nonce string) (string, error) {
	stateParam := r.URL.Query().Get("state")
	stateJSON, err := base64.StdEncoding.DecodeString(stateParam)
	if err != nil {
		stateJSON, err = base64.RawURLEncoding.DecodeString(stateParam)
	}
	if err != nil {
		return "", fmt.Errorf("invalid state parameter: %w", err)
	}

	var state struct {
		CSRF string `json:"csrf"`
	}
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return "", fmt.Errorf("invalid state parameter: %w", err)
	}

	if state.CSRF != nonce {
		return "", fmt.Errorf("csrf token mismatch")
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		return "", fmt.Errorf("missing token")
	}
	return token, nil
}

var cloudLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the cloud sync token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.DeleteToken(); err != nil {
			if errors.Is(err, storage.ErrNoToken) {
				fmt.Println("afkcli is not logged in")
				return nil
			}
			return err
		}

		fmt.Println("Logged out successfully.")
		return nil
	},
}

var cloudStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cloud sync configuration and reachability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadAppConfig()
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}

		status := CloudStatus{
			Enabled:    cfg.Cloud.Enabled,
			AppEnabled: cfg.Cloud.AppEnabled,
			Target:     cfg.Cloud.URL,
		}
		if status.Target == "" {
			status.Target = cfg.Cloud.Dir
		}
		if _, err := storage.LoadToken(); err == nil {
			status.LoggedIn = true
		}

		a, err := openApp(ctx)
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}
		defer a.Close()
		status.Available = a.companion.CloudAvailable()

		if cfg.Cloud.Enabled && cfg.Cloud.URL != "" {
			status.Verified = verifyRemote(ctx, cfg.Cloud.URL, a.companion, &status)
		}

		return printResponse(commands.NewSuccessResponse(status))
	},
}

func verifyRemote(ctx context.Context, cloudURL string, c *companion.Companion, status *CloudStatus) *bool {
	remote, err := storage.NewHTTPRemote(cloudURL, c.InstallID())
	if err != nil {
		status.Error = err.Error()
		return nil
	}

	ok := true
	if err := remote.Verify(ctx); err != nil {
		ok = false
		status.Error = err.Error()
	}
	return &ok
}

func init() {
	rootCmd.AddCommand(cloudCmd)
	cloudCmd.AddCommand(cloudLoginCmd, cloudLogoutCmd, cloudStatusCmd)

	cloudLoginCmd.Flags().StringVar(&cloudToken, "token", "", "Store this token instead of logging in through the browser")
}
