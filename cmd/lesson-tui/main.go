// Command lesson-tui is a terminal client for lesson sessions, wiring the
// session core to a real transport, audio device, and transcription client.
//
// Configuration comes from the environment (optionally via a .env file):
//
//	LESSON_SERVICE_URL  base URL of the lesson service (required)
//	LESSON_COURSE_ID    course to start or resume a session for (required)
//	REDIS_ADDR          optional redis address for session persistence
//	DEEPGRAM_API_KEY    optional, enables spoken-answer transcription
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/muesli/reflow/wordwrap"
	"github.com/redis/go-redis/v9"

	sequencing "github.com/mentora/lesson-core/core"
	"github.com/mentora/lesson-core/core/audio/miniaudio"
	"github.com/mentora/lesson-core/core/commands"
	"github.com/mentora/lesson-core/core/events"
	"github.com/mentora/lesson-core/core/sessions"
	"github.com/mentora/lesson-core/core/speechtotext/deepgram"
	"github.com/mentora/lesson-core/core/transport"
)

var (
	instructorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	peerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	statusBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7"))
)

type chatLineMsg struct{ line string }

type questionMsg struct{ question events.QuestionPresented }

type questionResolvedMsg struct{}

type statusMsg struct {
	status events.Status
	detail string
}

type model struct {
	session  *sequencing.Session
	viewport viewport.Model
	ready    bool

	lines    []string
	question *events.QuestionPresented
	status   events.Status
	detail   string

	recording bool
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMsg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(typedMsg.Width, typedMsg.Height-3)
			m.ready = true
		} else {
			m.viewport.Width = typedMsg.Width
			m.viewport.Height = typedMsg.Height - 3
		}
		m.refreshContent()

	case chatLineMsg:
		m.lines = append(m.lines, typedMsg.line)
		m.refreshContent()
		m.viewport.GotoBottom()

	case questionMsg:
		m.question = &typedMsg.question

	case questionResolvedMsg:
		m.question = nil

	case statusMsg:
		m.status = typedMsg.status
		m.detail = typedMsg.detail
		if m.status == events.StatusClosed {
			return m, tea.Quit
		}

	case tea.KeyMsg:
		return m.handleKey(typedMsg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.session.Close()
		return m, tea.Quit

	case "n":
		if err := m.session.ContinueLesson(context.Background()); err != nil {
			m.detail = err.Error()
		}

	case "c":
		if err := m.session.CancelQuestion(); err == nil {
			m.question = nil
		}

	case "l", "r":
		if m.question != nil && len(m.question.Options) == 2 {
			side := commands.BinarySideLeft
			if msg.String() == "r" {
				side = commands.BinarySideRight
			}
			if err := m.session.SubmitBinaryChoice(context.Background(), side); err == nil {
				m.question = nil
			}
		}

	case " ":
		var err error
		if m.recording {
			err = m.session.StopRecording(context.Background())
		} else {
			err = m.session.StartRecording(context.Background())
		}
		if err != nil {
			m.detail = err.Error()
		} else {
			m.recording = !m.recording
		}

	default:
		if m.question == nil {
			break
		}
		key := msg.String()
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			index := int(key[0] - '1')
			if err := m.session.SubmitAnswer(context.Background(), index); err == nil {
				m.question = nil
			}
		}
	}

	return m, nil
}

func (m *model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(wordwrap.String(strings.Join(m.lines, "\n"), m.viewport.Width))
}

func (m model) View() string {
	if !m.ready {
		return "starting lesson..."
	}

	var footer strings.Builder
	if m.question != nil {
		footer.WriteString(questionStyle.Render(m.question.Question))
		for i, option := range m.question.Options {
			footer.WriteString(fmt.Sprintf("  [%d] %s", i+1, option))
		}
		footer.WriteString("\n")
	} else {
		footer.WriteString("\n")
	}

	statusLine := fmt.Sprintf(" %s", m.status)
	if m.detail != "" {
		statusLine += " — " + m.detail
	}
	if m.recording {
		statusLine += "  ● recording"
	}
	statusLine += "  (space: talk, n: continue, q: quit)"

	return m.viewport.View() + "\n" + footer.String() + statusBarStyle.Render(statusLine)
}

func run() error {
	_ = godotenv.Load()

	serviceURL := os.Getenv("LESSON_SERVICE_URL")
	courseID := os.Getenv("LESSON_COURSE_ID")
	if serviceURL == "" || courseID == "" {
		return fmt.Errorf("LESSON_SERVICE_URL and LESSON_COURSE_ID must be set")
	}

	ctx := context.Background()

	var store sessions.Store = sessions.NewMemoryStore()
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		store = sessions.NewRedisStore(redis.NewClient(&redis.Options{Addr: redisAddr}), 24*time.Hour)
	}

	descriptor, err := store.Load(ctx, courseID)
	if errors.Is(err, sessions.ErrNotFound) {
		descriptor, err = transport.NewBootstrap(serviceURL).CreateSession(ctx, courseID)
		if err == nil {
			err = store.Save(ctx, descriptor)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to obtain a session: %w", err)
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	// The session needs the client as its outbound sink and the client needs
	// the session for its callbacks; messages arriving before the session is
	// assigned are dropped, which only loses frames sent before start_session.
	var session *sequencing.Session
	client, err := transport.Dial(ctx, descriptor.Endpoint, nil, transport.ClientCallbacks{
		OnMessage: func(message transport.Inbound) {
			if session != nil {
				session.HandleMessage(message)
			}
		},
		OnDisconnected: func(err error) {
			if session != nil {
				session.HandleDisconnect(err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to lesson service: %w", err)
	}
	defer func() { _ = client.Close() }()

	session = sequencing.NewSession(
		sequencing.WithOutboundSink(client),
		sequencing.WithAudioOutput(audioClient),
		sequencing.WithAudioInput(audioClient),
		sequencing.WithSpeechToTextClient(deepgram.NewTranscriptionClient()),
		sequencing.WithSessionStore(store),
		sequencing.WithSessionDescriptor(descriptor),
	)

	m := model{session: session, status: events.StatusConnecting}
	program := tea.NewProgram(m, tea.WithAltScreen())

	partyLine := func(party, text string) string {
		style := peerStyle
		if party == string(commands.PartyInstructor) {
			style = instructorStyle
		}
		return style.Render(party+":") + " " + text
	}

	session.Run(ctx,
		sequencing.WithChatMessageCallback(func(party, text string) {
			program.Send(chatLineMsg{line: partyLine(party, text)})
		}),
		sequencing.WithBoardMarkupCallback(func(html string) {
			program.Send(chatLineMsg{line: systemStyle.Render("[board] " + html)})
		}),
		sequencing.WithQuestionCallback(func(question events.QuestionPresented) {
			program.Send(questionMsg{question: question})
		}),
		sequencing.WithQuestionResolvedCallback(func(resolution events.QuestionResolved) {
			program.Send(questionResolvedMsg{})
			if resolution.Answered {
				verdict := "incorrect"
				if resolution.Correct {
					verdict = "correct"
				}
				program.Send(chatLineMsg{line: systemStyle.Render(
					fmt.Sprintf("[answer] %s (%s)", resolution.Answer, verdict))})
			}
		}),
		sequencing.WithModuleFinishedCallback(func() {
			program.Send(chatLineMsg{line: systemStyle.Render("[module finished — press n to continue]")})
		}),
		sequencing.WithGameCallback(func(game events.GamePresented) {
			label := "single-player"
			if game.TwoPlayer {
				label = fmt.Sprintf("%s on %s (%s vs %s)", game.GameType, game.Topic, game.Sides[0], game.Sides[1])
			}
			program.Send(chatLineMsg{line: systemStyle.Render("[game] " + label)})
		}),
		sequencing.WithScoreCallback(func(party, point string) {
			program.Send(chatLineMsg{line: systemStyle.Render(fmt.Sprintf("[score] %s earned %s", party, point))})
		}),
		sequencing.WithStatusCallback(func(status events.Status, detail string) {
			program.Send(statusMsg{status: status, detail: detail})
		}),
	)

	_, err = program.Run()
	session.Close()
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
