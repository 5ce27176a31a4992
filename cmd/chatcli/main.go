// Command chatcli runs the triage assistant in a terminal against the
// configured database and LLM providers. Bookings made here are real.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/klinikai/cmd/mainconfig"
	"github.com/wolfman30/klinikai/internal/app/bootstrap"
	"github.com/wolfman30/klinikai/internal/appointments"
	"github.com/wolfman30/klinikai/internal/assistant"
	"github.com/wolfman30/klinikai/internal/clinics"
	appconfig "github.com/wolfman30/klinikai/internal/config"
	"github.com/wolfman30/klinikai/internal/events"
	"github.com/wolfman30/klinikai/internal/triage"
	"github.com/wolfman30/klinikai/pkg/logging"
)

func main() {
	lang := flag.String("language", "en", "reply language: en, ms or zh")
	verbose := flag.Bool("v", false, "print tool calls and token usage")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logLevel := "warn"
	if *verbose {
		logLevel = "debug"
	}
	logger := logging.New(logLevel)

	ctx := context.Background()
	agent, cleanup, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	language := triage.ParseLanguage(*lang)
	fmt.Printf("KlinikAI (%s). Describe your symptoms; empty line or Ctrl-D to quit.\n", language)

	var history []assistant.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}
		history = append(history, assistant.Message{Role: assistant.RoleUser, Content: text})

		turnCtx, cancel := context.WithTimeout(ctx, cfg.ChatTimeout)
		start := time.Now()
		reply, err := agent.Run(turnCtx, language, history)
		cancel()
		if err != nil {
			fmt.Printf("    ❌ %v\n", err)
			history = history[:len(history)-1]
			continue
		}
		history = reply.Messages

		fmt.Println(reply.Text)
		if *verbose {
			for _, call := range reply.ToolCalls {
				fmt.Printf("    tool %s success=%t\n", call.Name, call.Success)
			}
			fmt.Printf("    steps=%d tokens in=%d out=%d (%v)\n",
				reply.Steps, reply.Usage.InputTokens, reply.Usage.OutputTokens, time.Since(start).Round(time.Millisecond))
		}
	}
}

// buildAgent wires the same services as the API server, minus owner e-mail
// and the event queue.
func buildAgent(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*assistant.Agent, func(), error) {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}
	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, &awsCfg, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	catalog := triage.DefaultCatalog()
	loc := cfg.Location()
	clinicsService := clinics.NewService(clinics.NewPostgresRepository(pool), logger,
		clinics.WithCatalog(catalog),
		clinics.WithMaxResults(cfg.RecommendationMax),
	)
	appointmentsService := appointments.NewService(appointments.NewPostgresRepository(pool), clinicsService, logger,
		appointments.WithPublisher(events.NewLogPublisher(logger)),
		appointments.WithSchedule(loc, cfg.AppointmentHour),
		appointments.WithDefaultPatient(cfg.DefaultPatientID),
	)

	agent := assistant.NewAgent(llm,
		assistant.NewToolbox(clinicsService, appointmentsService, loc, logger),
		logger,
		assistant.WithCatalog(catalog),
		assistant.WithMaxSteps(cfg.AgentMaxSteps),
	)
	cleanup := func() {
		closeLLM()
		pool.Close()
	}
	return agent, cleanup, nil
}
