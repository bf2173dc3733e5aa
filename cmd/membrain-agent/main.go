package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/synaptiq/membrain/pkg/brain"
	"github.com/synaptiq/membrain/pkg/config"
	"github.com/synaptiq/membrain/pkg/log"
	"github.com/synaptiq/membrain/pkg/mem"
)

// Constants for the command-line interface
const (
	cmdHelp     = "!help"
	cmdQuit     = "!quit"
	cmdRemember = "!remember"
	cmdRecall   = "!recall"
	cmdHistory  = "!history"
	cmdTopics   = "!topics"
	cmdMood     = "!mood"
	cmdStats    = "!stats"
	cmdClear    = "!clear"
)

// Command-line help text
const helpText = `
Membrain Agent - Command Reference:
-----------------------------------
!help             - Show this help message
!remember <text>  - Store a fact in memory
!recall <query>   - Retrieve memories matching query
!history [n]      - Show recent conversation turns
!topics           - Show aggregated conversation topics
!mood             - Show emotional context and tone guidance
!stats            - Show memory store statistics
!clear            - Delete ALL memories (asks for confirmation)
!quit             - Exit the application

Notes:
- Regular text input is recorded as a conversation turn and answered
  with the most relevant memories
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".membrain_history"

func main() {
	// Environment first so the config loader sees overrides
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env file")
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Setup(log.Config{
		Level:  log.Level(cfg.Logging.Level),
		Format: log.Format(cfg.Logging.Format),
	})
	log.Info("Starting membrain agent")

	engine, err := brain.NewBrainFromConfig(cfg)
	if err != nil {
		log.Error("Failed to initialize brain", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	runCLI(engine, cfg)
}

// loadConfig loads the application configuration from standard locations.
func loadConfig() (*config.Config, error) {
	configPaths := []string{
		"./configs/config.yaml",
		"./config.yaml",
		"../configs/config.yaml",
	}

	if path := os.Getenv("MEMBRAIN_CONFIG"); path != "" {
		configPaths = append([]string{path}, configPaths...)
	}

	for _, path := range configPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			log.Info("Loading configuration", "path", path)
			cfg, err := config.LoadFromFile(path)
			if err == nil {
				return cfg, nil
			}
			log.Warn("Failed to load config file", "path", path, "error", err)
		}
	}

	log.Info("Using default configuration with mock adapters")
	return config.Default()
}

// runCLI starts the command-line interface for user interaction.
func runCLI(engine *brain.Brain, cfg *config.Config) {
	ctx := context.Background()

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	line.SetCompleter(func(line string) (c []string) {
		commands := []string{
			cmdHelp, cmdQuit, cmdRemember, cmdRecall, cmdHistory,
			cmdTopics, cmdMood, cmdStats, cmdClear,
		}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== Membrain Agent ===")
	fmt.Println("Store:", cfg.Store.Type, "| Embeddings:", cfg.Embedding.Provider)
	fmt.Println("Type !help for available commands.")

	for {
		input, err := line.Prompt("membrain> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "!") {
			parts := strings.SplitN(input, " ", 2)
			arg := ""
			if len(parts) == 2 {
				arg = strings.TrimSpace(parts[1])
			}

			switch parts[0] {
			case cmdHelp:
				fmt.Println(helpText)

			case cmdQuit:
				fmt.Println("Goodbye!")
				return

			case cmdRemember:
				handleRemember(ctx, engine, line, arg)

			case cmdRecall:
				handleRecall(ctx, engine, line, arg)

			case cmdHistory:
				handleHistory(ctx, engine, arg)

			case cmdTopics:
				handleTopics(ctx, engine)

			case cmdMood:
				handleMood(ctx, engine)

			case cmdStats:
				handleStats(ctx, engine)

			case cmdClear:
				handleClear(ctx, engine, line)

			default:
				fmt.Printf("Unknown command: %s\nType !help for available commands.\n", parts[0])
			}
			continue
		}

		handleTurn(ctx, engine, input)
	}
}

// handleTurn records a conversation turn and answers with relevant memories.
func handleTurn(ctx context.Context, engine *brain.Brain, input string) {
	candidates, err := engine.RetrieveMemories(ctx, input, 0)
	if err != nil {
		fmt.Printf("Error retrieving memories: %v\n", err)
		return
	}

	if err := engine.RecordTurn(ctx, input, ""); err != nil {
		fmt.Printf("Error recording turn: %v\n", err)
		return
	}

	if len(candidates) == 0 {
		fmt.Println("No related memories yet.")
		return
	}

	fmt.Printf("Related memories (%d):\n", len(candidates))
	for i, c := range candidates {
		fmt.Printf("  %d. [%.2f] %s\n", i+1, c.BoostedScore, c.Record.Content)
	}
}

func handleRemember(ctx context.Context, engine *brain.Brain, line *liner.State, arg string) {
	if arg == "" {
		var err error
		arg, err = line.Prompt("Enter memory to store: ")
		if err != nil || strings.TrimSpace(arg) == "" {
			fmt.Println("Memory storage cancelled")
			return
		}
		arg = strings.TrimSpace(arg)
	}

	id, err := engine.AddMemory(ctx, arg, mem.AddOptions{Type: mem.TypeFact})
	if err != nil {
		fmt.Printf("Error storing memory: %v\n", err)
		return
	}
	fmt.Printf("Memory stored with ID: %s\n", id)
}

func handleRecall(ctx context.Context, engine *brain.Brain, line *liner.State, arg string) {
	if arg == "" {
		var err error
		arg, err = line.Prompt("Enter recall query: ")
		if err != nil || strings.TrimSpace(arg) == "" {
			fmt.Println("Recall cancelled")
			return
		}
		arg = strings.TrimSpace(arg)
	}

	candidates, err := engine.RetrieveMemories(ctx, arg, 0)
	if err != nil {
		fmt.Printf("Error retrieving memories: %v\n", err)
		return
	}
	if len(candidates) == 0 {
		fmt.Println("No memories found for the query.")
		return
	}

	fmt.Printf("Found %d memories:\n\n", len(candidates))
	for i, c := range candidates {
		fmt.Printf("Memory %d: %s\n", i+1, c.Record.Content)
		fmt.Printf("  Similarity: %.2f", c.Similarity)
		if c.EntityBoost > 0 || c.KeywordBoost > 0 {
			fmt.Printf(" | Boosted: %.2f (entity +%.2f, keyword +%.2f)",
				c.BoostedScore, c.EntityBoost, c.KeywordBoost)
		}
		fmt.Println()
		if !c.Record.Meta.Timestamp.IsZero() {
			fmt.Printf("  Created: %s\n", c.Record.Meta.Timestamp.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

func handleHistory(ctx context.Context, engine *brain.Brain, arg string) {
	n := 10
	if arg != "" {
		fmt.Sscanf(arg, "%d", &n)
	}

	records, err := engine.GetConversationHistory(ctx, n)
	if err != nil {
		fmt.Printf("Error loading history: %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("No conversation history yet.")
		return
	}

	for _, record := range records {
		role := record.Meta.Role
		if role == "" {
			role = "note"
		}
		fmt.Printf("[%s] %s: %s\n",
			record.Meta.Timestamp.Format("15:04:05"), role, record.Content)
	}
}

func handleTopics(ctx context.Context, engine *brain.Brain) {
	stats, err := engine.GetTopicStatistics(ctx)
	if err != nil {
		fmt.Printf("Error aggregating topics: %v\n", err)
		return
	}
	if len(stats) == 0 {
		fmt.Println("No recurring topics yet (topics need at least two mentions).")
		return
	}

	fmt.Println("Conversation topics:")
	for _, stat := range stats {
		fmt.Printf("  %-20s x%d", stat.Topic, stat.Count)
		if stat.DominantSentiment != "" {
			fmt.Printf("  (%s", stat.DominantSentiment)
			if len(stat.DominantEmotions) > 0 {
				fmt.Printf("; %s", strings.Join(stat.DominantEmotions, ", "))
			}
			fmt.Print(")")
		}
		fmt.Println()
	}
}

func handleMood(ctx context.Context, engine *brain.Brain) {
	summary, err := engine.GetEmotionalContextSummary(ctx)
	if err != nil {
		fmt.Printf("Error reading emotional context: %v\n", err)
		return
	}
	fmt.Println(summary)

	tone, err := engine.ShouldAdjustTone(ctx)
	if err == nil {
		fmt.Printf("Tone: %s (%s)\n", tone.Recommendation, tone.Reason)
	}

	guidance, err := engine.GetEmotionalAdaptationGuidance(ctx)
	if err == nil && guidance != "" {
		fmt.Println()
		fmt.Println(guidance)
	}
}

func handleStats(ctx context.Context, engine *brain.Brain) {
	stats, err := engine.GetStats(ctx)
	if err != nil {
		fmt.Printf("Error reading stats: %v\n", err)
		return
	}
	fmt.Printf("Collection: %s\n", stats.Name)
	fmt.Printf("Memories:   %d\n", stats.Count)
	if stats.Location != "" {
		fmt.Printf("Location:   %s\n", stats.Location)
	}
}

func handleClear(ctx context.Context, engine *brain.Brain, line *liner.State) {
	answer, err := line.Prompt("Delete ALL memories? This cannot be undone (yes/no): ")
	if err != nil || strings.ToLower(strings.TrimSpace(answer)) != "yes" {
		fmt.Println("Clear cancelled")
		return
	}
	if err := engine.ClearAllMemories(ctx); err != nil {
		fmt.Printf("Error clearing memories: %v\n", err)
		return
	}
	fmt.Println("All memories cleared.")
}
