package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/makavanaraju78/Streamverse/internal/app"
	"github.com/makavanaraju78/Streamverse/internal/client"
	"github.com/makavanaraju78/Streamverse/internal/config"
	"github.com/makavanaraju78/Streamverse/internal/session"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	baseURL := flag.String("url", "", "Override the catalog service URL (http://host:port)")
	wsURL := flag.String("ws", "", "Override the change feed URL (derived from -url when empty)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
		cfg.Client.WSURL = ""
	}
	if *wsURL != "" {
		cfg.Client.WSURL = *wsURL
	}

	// The alt screen owns stdout, so logs go to a file.
	if cfg.Client.LogFile != "" {
		f, err := tea.LogToFile(cfg.Client.LogFile, "streamverse")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	m := app.New(app.Options{
		HTTP:            client.NewHTTPClient(cfg.Client.BaseURL, cfg.Client.RequestTimeout),
		WSURL:           cfg.Client.WebSocketURL(),
		FeedbackTimeout: cfg.Client.FeedbackTimeout,
		Session:         session.Anonymous(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
