package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Output handles formatting and printing results
type Output struct {
	format string
}

// NewOutput creates a new output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print formats and prints the given data
func (o *Output) Print(data any) error {
	switch o.format {
	case "json":
		return o.printJSON(data)
	default:
		return o.printText(data)
	}
}

func (o *Output) printJSON(data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func (o *Output) printText(data any) error {
	switch v := data.(type) {
	case *Session:
		o.printSession(v)
	case []Session:
		if len(v) == 0 {
			fmt.Println("No sessions")
			return nil
		}
		for i := range v {
			o.printSession(&v[i])
			fmt.Println()
		}
	case *Party:
		o.printParty(v)
	case []ServerInfo:
		if len(v) == 0 {
			fmt.Println("No servers")
			return nil
		}
		for i := range v {
			o.printServer(&v[i])
			fmt.Println()
		}
	case *HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
		if v.PersistenceDegraded {
			fmt.Println("Persistence: degraded (flush queue backed up)")
		} else {
			fmt.Println("Persistence: ok")
		}
	default:
		// Fall back to JSON for unknown types
		return o.printJSON(data)
	}
	return nil
}

func (o *Output) printSession(s *Session) {
	fmt.Printf("Player: %s\n", s.PlayerID)
	fmt.Printf("  Server: %s\n", s.ServerID)
	if s.Stale {
		fmt.Printf("  Status: %s (stale)\n", s.Status)
	} else {
		fmt.Printf("  Status: %s\n", s.Status)
	}
	fmt.Printf("  Connected: %s\n", s.ConnectedAt.Format(time.RFC3339))
	if s.TransferTo != "" {
		fmt.Printf("  Transferring to: %s\n", s.TransferTo)
	}
}

func (o *Output) printParty(p *Party) {
	fmt.Printf("Party: %s\n", p.ID)
	fmt.Printf("  Leader: %s\n", p.LeaderID)
	members := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, m.PlayerID)
	}
	fmt.Printf("  Members: %s\n", strings.Join(members, ", "))
	if len(p.Invites) > 0 {
		invited := make([]string, 0, len(p.Invites))
		for id := range p.Invites {
			invited = append(invited, id)
		}
		fmt.Printf("  Pending invites: %s\n", strings.Join(invited, ", "))
	}
}

func (o *Output) printServer(s *ServerInfo) {
	fmt.Printf("Server: %s\n", s.ID)
	fmt.Printf("  Address: %s\n", s.Address)
	fmt.Printf("  Health: %s\n", s.Health)
	fmt.Printf("  Players: %d/%d\n", s.PlayerCount, s.Capacity)
}

// Session mirrors the registry session body
type Session struct {
	PlayerID    string    `json:"player_id"`
	ServerID    string    `json:"server_id"`
	Status      string    `json:"status"`
	ConnectedAt time.Time `json:"connected_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	TransferTo  string    `json:"transfer_to,omitempty"`
	Stale       bool      `json:"stale"`
}

// PartyMember mirrors a party roster entry
type PartyMember struct {
	PlayerID string    `json:"player_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Party mirrors the party state body
type Party struct {
	ID       string               `json:"id"`
	LeaderID string               `json:"leader_id"`
	Members  []PartyMember        `json:"members"`
	Invites  map[string]time.Time `json:"invites,omitempty"`
}

// ServerInfo mirrors the fleet view body
type ServerInfo struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	PlayerCount int    `json:"player_count"`
	Capacity    int    `json:"capacity"`
	Health      string `json:"health"`
}

// HealthResult mirrors the health endpoint body
type HealthResult struct {
	Status              string `json:"status"`
	PersistenceDegraded bool   `json:"persistence_degraded"`
}
