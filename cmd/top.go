// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"majordomo/internal/mdp"
)

var (
	topAdminAddr string
	topUser      string
	topPassword  string
	topInterval  time.Duration
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live dashboard of broker services and workers",
	Long: `top polls the admin API's /stats, /services, and /workers
endpoints on an interval and renders a live terminal dashboard, the way
a process monitor renders CPU and memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newTopClient(topAdminAddr, topUser, topPassword)
		p := tea.NewProgram(newTopModel(client, topInterval))
		_, err := p.Run()
		return err
	},
}

func init() {
	topCmd.Flags().StringVar(&topAdminAddr, "admin-addr", "http://localhost:8090", "admin API base address")
	topCmd.Flags().StringVar(&topUser, "user", "admin", "admin API username")
	topCmd.Flags().StringVar(&topPassword, "password", "", "admin API password")
	topCmd.Flags().DurationVar(&topInterval, "interval", 2*time.Second, "poll interval")
}

// topClient is a minimal admin API client, independent of mdpclient
// since it speaks HTTP/JSON rather than the wire protocol.
type topClient struct {
	base  string
	user  string
	pass  string
	token string
	http  *http.Client
}

func newTopClient(base, user, pass string) *topClient {
	return &topClient{base: base, user: user, pass: pass, http: &http.Client{Timeout: 5 * time.Second}}
}

func (c *topClient) login() error {
	body, _ := json.Marshal(map[string]string{"username": c.user, "password": c.pass})
	resp, err := c.http.Post(c.base+"/api/v1/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	c.token = out.Token
	return nil
}

func (c *topClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.login(); err != nil {
			return err
		}
		return c.get(path, out)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *topClient) fetch() (mdp.Stats, []mdp.ServiceSnapshot, []mdp.WorkerSnapshot, error) {
	var stats mdp.Stats
	var services []mdp.ServiceSnapshot
	var workers []mdp.WorkerSnapshot

	if err := c.get("/api/v1/stats", &stats); err != nil {
		return stats, nil, nil, err
	}
	if err := c.get("/api/v1/services", &services); err != nil {
		return stats, nil, nil, err
	}
	if err := c.get("/api/v1/workers", &workers); err != nil {
		return stats, nil, nil, err
	}
	return stats, services, workers, nil
}

type topModel struct {
	client   *topClient
	interval time.Duration

	stats    mdp.Stats
	services []mdp.ServiceSnapshot
	workers  []mdp.WorkerSnapshot
	err      error
	quitting bool
}

func newTopModel(client *topClient, interval time.Duration) topModel {
	return topModel{client: client, interval: interval}
}

type topTickMsg struct{}

type topDataMsg struct {
	stats    mdp.Stats
	services []mdp.ServiceSnapshot
	workers  []mdp.WorkerSnapshot
	err      error
}

func (m topModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), tickAfter(m.interval))
}

func (m topModel) poll() tea.Cmd {
	return func() tea.Msg {
		stats, services, workers, err := m.client.fetch()
		return topDataMsg{stats: stats, services: services, workers: workers, err: err}
	}
}

func tickAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return topTickMsg{} })
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case topTickMsg:
		return m, tea.Batch(m.poll(), tickAfter(m.interval))

	case topDataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.services = msg.services
			m.workers = msg.workers
		}
		return m, nil
	}
	return m, nil
}

var (
	topHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50FA7B"))
	topLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
	topErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

func (m topModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return topErrStyle.Render(fmt.Sprintf("majordomo top: %v\n", m.err))
	}

	header := topHeaderStyle.Render("majordomo top") + "\n"
	stats := fmt.Sprintf(
		"%s %d  %s %d  %s %d  %s %d\n\n",
		topLabelStyle.Render("requests:"), m.stats.Requests,
		topLabelStyle.Render("replies:"), m.stats.Replies,
		topLabelStyle.Render("hb sent:"), m.stats.HeartbeatsSent,
		topLabelStyle.Render("hb recv:"), m.stats.HeartbeatsReceived,
	)

	services := topHeaderStyle.Render("services") + "\n"
	for _, s := range m.services {
		services += fmt.Sprintf("  %-20s available=%d pending=%d\n", s.Name, s.Available, s.Pending)
	}

	workers := topHeaderStyle.Render("\nworkers") + "\n"
	for _, w := range m.workers {
		workers += fmt.Sprintf("  %-20s service=%-12s liveness=%d\n", w.WID, w.Service, w.Liveness)
	}

	return header + stats + services + workers + "\n(q to quit)\n"
}
