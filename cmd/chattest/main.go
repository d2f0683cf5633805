package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/smart-schedule/internal/app/bootstrap"
	appconfig "github.com/wolfman30/smart-schedule/internal/config"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

// chattest runs the booking assistant in-process against the configured LLM
// and an in-memory schedule, reading customer messages from stdin.
func main() {
	session := flag.String("session", "", "session id (random when empty)")
	flag.Parse()

	cfg := appconfig.Load()
	cfg.UseMemoryStore = true
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}
	defer closeLLM()

	repo, err := bootstrap.BuildRepository(ctx, nil, cfg, logger)
	if err != nil {
		log.Fatalf("repository: %v", err)
	}
	history := bootstrap.BuildHistoryStore(nil, cfg, logger)
	chat := bootstrap.BuildChatService(cfg, llm, repo, history, nil, nil, logger)

	sessionID := strings.TrimSpace(*session)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	fmt.Printf("%s chat test (provider=%s, session=%s)\n", cfg.BusinessName, cfg.LLMProvider, sessionID)
	fmt.Println("Type a message, /reset to start over, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "/quit":
			return
		case "/reset":
			if err := chat.Reset(ctx, sessionID); err != nil {
				fmt.Printf("reset failed: %v\n", err)
			}
			continue
		}

		reply := chat.HandleMessage(ctx, sessionID, text)
		fmt.Println(reply.Text)
		if reply.Booked {
			fmt.Println("(appointment stored)")
		}
	}
}
