package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"elix-client/internal/client"
	"elix-client/internal/config"
	"elix-client/internal/controller"
	"elix-client/internal/models"
	"elix-client/internal/quiz"
	"elix-client/internal/storage"
)

func main() {
	log.Println("🚀 Starting elix...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Open Session Storage ────
	kv, err := openKV(cfg)
	if err != nil {
		log.Fatalf("✗ Storage initialization failed: %v", err)
	}
	store := storage.NewSessionStore(kv, time.Duration(cfg.RetentionHours)*time.Hour)
	log.Printf("✓ Session storage ready (%s)", cfg.StorageType)

	// ──── Step 3: Wire Controller ────
	api := client.New(cfg.APIBaseURL)
	ctrl := controller.New(api, store, cfg.DefaultAge, cfg.QuizNumQuestions, cfg.QuizDifficulty)
	ctrl.Load(context.Background())
	defer ctrl.Stop()

	render := &renderer{}
	ctrl.OnRecord = render.onRecord

	// ──── Step 4: Start Expiry Sweeper ────
	ctrl.StartSweeper(time.Hour)
	log.Println("✓ Expiry sweeper started")

	fmt.Printf("Connected to %s. Type a topic to get an explanation, /help for commands.\n", cfg.APIBaseURL)
	repl(ctrl, api, render)
}

func openKV(cfg *config.Config) (storage.KV, error) {
	switch cfg.StorageType {
	case "file":
		return storage.NewFileKV(cfg.StoragePath)
	case "redis":
		return storage.NewRedisKV(cfg.RedisURL)
	case "postgres":
		return storage.NewPostgresKV(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

// renderer prints streamed records as they are applied, so partial
// progress is visible while the answer is still being assembled.
type renderer struct {
	section string
}

func (r *renderer) reset() {
	r.section = ""
}

func (r *renderer) onRecord(_ int64, rec models.StreamRecord) {
	switch rec.Type {
	case models.RecordContent:
		if rec.Section != r.section {
			fmt.Printf("\n\n%s: ", rec.Section)
			r.section = rec.Section
		}
		fmt.Print(rec.Text)
	case models.RecordUpdate:
		fmt.Printf("\n\n%s (revised): %s", rec.Section, rec.Text)
		r.section = rec.Section
	}
}

func repl(ctrl *controller.Controller, api *client.Client, render *renderer) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			send(ctrl, api, render, line)
			continue
		}

		fields := strings.Fields(line)
		arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		switch fields[0] {
		case "/quit":
			return
		case "/help":
			printHelp()
		case "/new":
			ctrl.NewChat()
			fmt.Println("Started a new chat.")
		case "/chats":
			printChats(ctrl)
		case "/open":
			openChat(ctrl, arg)
		case "/topics":
			printTopics(ctrl)
		case "/quiz":
			if err := ctrl.ShowQuizSetup(arg); err != nil {
				fmt.Println(err)
				continue
			}
			if arg != "" {
				if err := ctrl.SetQuizTopic(arg); err != nil {
					fmt.Println(err)
					continue
				}
			}
			startQuiz(ctrl)
		case "/answer":
			answer(ctrl, strings.ToUpper(arg))
		case "/next":
			next(ctrl)
		case "/again":
			if err := ctrl.TryAgain(); err != nil {
				fmt.Println(err)
				continue
			}
			startQuiz(ctrl)
		case "/exit":
			if err := ctrl.ExitQuiz(); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Back to explain mode.")
		default:
			fmt.Printf("Unknown command %s (try /help)\n", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`Type any topic or question to get an explanation.
Commands:
  /new            start a new chat
  /chats          list chats
  /open <id>      switch to a chat
  /topics         list topic packs from the service
  /quiz [topic]   start a quiz (defaults to the chat topic)
  /answer <A-D>   answer the current quiz question
  /next           next question / finish quiz
  /again          retry the quiz on the same topic
  /exit           leave quiz mode
  /quit           exit`)
}

func send(ctrl *controller.Controller, api *client.Client, render *renderer, text string) {
	render.reset()
	if err := ctrl.Send(context.Background(), text); err != nil {
		fmt.Printf("\n⚠ The stream ended early: %v\n", err)
	}
	fmt.Println()

	session := ctrl.Active()
	if session == nil || len(session.Messages) == 0 {
		return
	}
	if msg, ok := session.Messages[len(session.Messages)-1].(*models.AssistantMessage); ok && msg.AudioURL != "" {
		fmt.Printf("\n🔊 Audio: %s\n", api.AudioURL(msg.AudioURL))
	}
}

func printChats(ctrl *controller.Controller) {
	sessions := ctrl.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	active := ctrl.Active()
	for _, session := range sessions {
		marker := " "
		if active != nil && session.ID == active.ID {
			marker = "*"
		}
		fmt.Printf("%s %d  %s (%d messages)\n", marker, session.ID, session.Topic, len(session.Messages))
	}
}

func openChat(ctrl *controller.Controller, arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("Usage: /open <chat id>")
		return
	}
	if err := ctrl.SelectChat(id); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Opened chat %d.\n", id)
}

func printTopics(ctrl *controller.Controller) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	packs, err := ctrl.Topics(ctx)
	if err != nil {
		fmt.Printf("Could not fetch topics: %v\n", err)
		return
	}
	for pack, topics := range packs {
		fmt.Printf("%s: %s\n", pack, strings.Join(topics, ", "))
	}
}

func startQuiz(ctrl *controller.Controller) {
	fmt.Println("Generating quiz...")
	if err := ctrl.StartQuiz(context.Background()); err != nil {
		fmt.Printf("Quiz setup failed: %v (topic kept, try /quiz again)\n", err)
		return
	}
	printQuestion(ctrl)
}

func answer(ctrl *controller.Controller, option string) {
	if option == "" {
		fmt.Println("Usage: /answer <letter>")
		return
	}
	if err := ctrl.SubmitQuizAnswer(option); err != nil {
		fmt.Println(err)
		return
	}

	session := ctrl.Active()
	qs := session.QuizState
	if qs.CurrentIsCorrect {
		fmt.Println("✓ Correct!")
	} else {
		fmt.Printf("✗ Not quite — the answer was %s.\n", qs.Current().Correct)
	}
	fmt.Printf("%s\n", qs.Current().Explanation)
	fmt.Printf("Score: %s. /next to continue.\n", quiz.ScoreLine(qs))
}

func next(ctrl *controller.Controller) {
	if err := ctrl.NextQuestion(); err != nil {
		fmt.Println(err)
		return
	}

	session := ctrl.Active()
	qs := session.QuizState
	if qs.Completed {
		printSummary(qs)
		return
	}
	printQuestion(ctrl)
}

func printQuestion(ctrl *controller.Controller) {
	session := ctrl.Active()
	if session == nil || session.QuizState == nil {
		return
	}
	qs := session.QuizState
	q := qs.Current()
	if q == nil {
		return
	}

	fmt.Printf("\nQuestion %d/%d: %s\n", qs.CurrentIndex+1, len(qs.Questions), q.Question)
	for _, letter := range []string{"A", "B", "C", "D", "E", "F"} {
		if text, ok := q.Options[letter]; ok {
			fmt.Printf("  %s) %s\n", letter, text)
		}
	}
	fmt.Println("Answer with /answer <letter>.")
}

func printSummary(qs *models.QuizState) {
	fmt.Printf("\nQuiz complete! Final score: %d/%d\n", qs.Score, len(qs.Questions))
	for i, a := range qs.Answers {
		mark := "✓"
		if !a.IsCorrect {
			mark = "✗"
		}
		fmt.Printf("%s %d. %s — you said %s, answer %s\n", mark, i+1, a.Question, a.UserAnswer, a.CorrectAnswer)
	}
	fmt.Println("/again to retry, /exit to go back to explain mode.")
}
