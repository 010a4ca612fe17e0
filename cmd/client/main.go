// Package main runs the interactive StyleGuard client shell: log in,
// submit text for correction, and browse prior corrections.
package main

import (
	"bufio"
	"cmp"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/styleguard/styleguard/internal/client/api"
	"github.com/styleguard/styleguard/internal/client/correction"
	"github.com/styleguard/styleguard/internal/client/session"
	"github.com/styleguard/styleguard/internal/config"
	"github.com/styleguard/styleguard/internal/logger"
	"github.com/styleguard/styleguard/internal/models"
)

var (
	version   string
	buildDate string
)

// printCorrection renders one correction record.
func printCorrection(c models.Correction) {
	fmt.Printf("ID: %d\nCreated: %s\nOriginal:  %s\nCorrected: %s\n---\n",
		c.ID, c.CreatedAt.Format("2006-01-02 15:04:05"), c.OriginalText, c.CorrectedText)
}

// printStoreError renders the correction store's current error, adding
// the outage hint for backend-unavailable failures.
func printStoreError(store *correction.Store) {
	msg := store.ErrorMessage()
	if msg == "" {
		return
	}
	fmt.Println("Error:", msg)
	if store.IsBackendUnavailable() {
		fmt.Println("The correction engine looks unreachable. Check that it is running and try again.")
	}
}

// repl runs the interactive shell loop.
func repl(sess *session.Manager, store *correction.Store) {
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("styleguard> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login, register, logout, whoami, submit, list, select <id>, show, unselect, delete <id>, exit")
		case "login":
			identifier := promptLine(scanner, "Email: ")
			password := promptLine(scanner, "Password: ")
			if err := sess.Login(ctx, identifier, password); err != nil {
				fmt.Println("Login failed:", err)
				continue
			}
			fmt.Printf("Logged in as %s\n", sess.User().Username)
		case "register":
			email := promptLine(scanner, "Email: ")
			username := promptLine(scanner, "Username: ")
			password := promptLine(scanner, "Password: ")
			if err := sess.Register(ctx, email, username, password); err != nil {
				fmt.Println("Registration failed:", err)
				continue
			}
			fmt.Printf("Registered and logged in as %s\n", sess.User().Username)
		case "logout":
			sess.Logout(ctx)
			fmt.Println("Logged out")
		case "whoami":
			if user := sess.User(); user != nil {
				fmt.Printf("%s <%s> (id %d)\n", user.Username, user.Email, user.ID)
			} else {
				fmt.Println("Not logged in")
			}
		case "submit":
			text := promptText(scanner)
			if text == "" {
				// Empty submission is a no-op at the UI boundary.
				continue
			}
			created, err := store.Submit(ctx, text)
			if err != nil {
				printStoreError(store)
				continue
			}
			printCorrection(created)
		case "list":
			skip, limit := 0, 10
			if len(args) > 1 {
				skip, _ = strconv.Atoi(args[1])
			}
			if len(args) > 2 {
				limit, _ = strconv.Atoi(args[2])
			}
			if err := store.FetchAll(ctx, skip, limit); err != nil {
				printStoreError(store)
				continue
			}
			corrections := store.Corrections()
			if len(corrections) == 0 {
				fmt.Println("No corrections yet")
				continue
			}
			for _, c := range corrections {
				printCorrection(c)
			}
		case "select":
			if len(args) < 2 {
				fmt.Println("Usage: select <id>")
				continue
			}
			id, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Println("Usage: select <id>")
				continue
			}
			if err := store.Select(ctx, id); err != nil {
				printStoreError(store)
				continue
			}
			if store.ErrorInfo() != nil {
				printStoreError(store)
				continue
			}
			if selected := store.Selected(); selected != nil {
				printCorrection(*selected)
			}
		case "show":
			if selected := store.Selected(); selected != nil {
				printCorrection(*selected)
			} else {
				fmt.Println("No correction selected")
			}
		case "unselect":
			store.ClearSelected()
		case "delete":
			if len(args) < 2 {
				fmt.Println("Usage: delete <id>")
				continue
			}
			id, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Println("Usage: delete <id>")
				continue
			}
			if err := store.Remove(ctx, id); err != nil {
				printStoreError(store)
				continue
			}
			fmt.Println("Correction deleted")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	options := config.Defaults()
	var showVer bool
	flag.StringVar(&options.ServerURL, "url", options.ServerURL, "StyleGuard API base URL")
	flag.IntVar(&options.TimeoutSeconds, "timeout", options.TimeoutSeconds, "request timeout in seconds")
	flag.StringVar(&options.StateFile, "state", options.StateFile, "path of the persisted session file")
	flag.StringVar(&options.LogLevel, "log-level", options.LogLevel, "log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("StyleGuard Client\nVersion: %s\nBuild Date: %s\n",
			cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	options = config.Resolve(options)

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	fileStore := session.NewFileStore(options.StateFile)
	sess := session.NewManager(fileStore, log.Log)
	client := api.New(options.ServerURL, options.Timeout(), sess, log.Log)
	client.SetSessionExpiredHandler(func() {
		fmt.Println("\nYour session has expired, please log in again.")
	})
	sess.SetClient(client)

	store := correction.New(client, log.Log)

	if sess.IsAuthenticated() {
		fmt.Printf("Welcome back, %s\n", sess.User().Username)
	}
	repl(sess, store)
}
