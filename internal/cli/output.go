package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case MeResult:
		o.printMe(v)
	case Profile:
		o.printProfile(v)
	case CodeResult:
		o.printCode(v)
	case ScanResult:
		o.printScan(v)
	case EncounterList:
		o.printEncounterList(v)
	case EncounterDetail:
		o.printEncounterDetail(v)
	case ParticipantList:
		o.printParticipantList(v)
	case StatsResult:
		o.printStats(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// MeResult response type (matches API)
type MeResult struct {
	ParticipantID string  `json:"participant_id"`
	PublicID      string  `json:"public_id"`
	Event         Event   `json:"event"`
	Profile       Profile `json:"profile"`
}

// Event response type
type Event struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Profile response type
type Profile struct {
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	PhotoURL  *string `json:"photo_url"`
	Instagram *string `json:"instagram"`
	Niche     *string `json:"niche"`
	About     *string `json:"about"`
	Helpful   *string `json:"helpful"`
}

// CodeResult response type
type CodeResult struct {
	Code       string `json:"code"`
	IssuedAtMs *int64 `json:"issued_at_ms"`
}

// ScanResult response type
type ScanResult struct {
	EncounterID string       `json:"encounter_id"`
	Created     bool         `json:"created"`
	Other       *Counterpart `json:"other"`
}

// Counterpart response type
type Counterpart struct {
	ParticipantID string  `json:"participant_id"`
	PublicID      string  `json:"public_id"`
	DisplayName   *string `json:"display_name"`
	PhotoURL      *string `json:"photo_url"`
	Niche         *string `json:"niche"`
}

// Encounter response type
type Encounter struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Other     Counterpart `json:"other"`
	Note      *string     `json:"note"`
	Rating    *int        `json:"rating"`
}

// EncounterList response type
type EncounterList struct {
	Encounters []Encounter `json:"encounters"`
}

// EncounterDetail response type
type EncounterDetail struct {
	Encounter
	OtherProfile *Profile `json:"other_profile"`
}

// Participant response type
type Participant struct {
	ParticipantID string    `json:"participant_id"`
	PublicID      string    `json:"public_id"`
	JoinedAt      time.Time `json:"joined_at"`
	Profile       Profile   `json:"profile"`
}

// ParticipantList response type
type ParticipantList struct {
	Participants []Participant `json:"participants"`
}

// StatsResult response type
type StatsResult struct {
	Encounters int      `json:"encounters"`
	Rated      int      `json:"rated"`
	AvgRating  *float64 `json:"avg_rating"`
	Notes      int      `json:"notes"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func displayName(p Profile) string {
	if p.LastName != nil && *p.LastName != "" {
		return p.FirstName + " " + *p.LastName
	}
	return p.FirstName
}

func (o *Output) printMe(m MeResult) {
	fmt.Printf("Participant: %s (%s)\n", displayName(m.Profile), m.ParticipantID)
	fmt.Printf("Public ID: %s\n", m.PublicID)
	fmt.Printf("Event: %s (%s)\n", m.Event.Name, m.Event.Slug)
	o.printProfile(m.Profile)
}

func (o *Output) printProfile(p Profile) {
	fmt.Printf("Name: %s\n", displayName(p))
	if p.Niche != nil {
		fmt.Printf("Niche: %s\n", *p.Niche)
	}
	if p.Instagram != nil {
		fmt.Printf("Instagram: %s\n", *p.Instagram)
	}
	if p.About != nil {
		fmt.Printf("About: %s\n", *p.About)
	}
	if p.Helpful != nil {
		fmt.Printf("Can help with: %s\n", *p.Helpful)
	}
}

func (o *Output) printCode(c CodeResult) {
	fmt.Println(c.Code)
}

func (o *Output) printScan(s ScanResult) {
	if s.Created {
		fmt.Println("Encounter recorded")
	} else {
		fmt.Println("Already met")
	}
	fmt.Printf("Encounter: %s\n", s.EncounterID)
	if s.Other != nil && s.Other.DisplayName != nil {
		fmt.Printf("Met: %s\n", *s.Other.DisplayName)
	}
}

func (o *Output) printEncounterList(l EncounterList) {
	fmt.Printf("Encounters (%d):\n", len(l.Encounters))
	for _, e := range l.Encounters {
		name := e.Other.PublicID
		if e.Other.DisplayName != nil {
			name = *e.Other.DisplayName
		}
		line := fmt.Sprintf("  - %s  %s (%s)", e.CreatedAt.Format("2006-01-02 15:04"), name, e.ID)
		if e.Rating != nil {
			line += fmt.Sprintf("  [%d/5]", *e.Rating)
		}
		fmt.Println(line)
		if e.Note != nil && *e.Note != "" {
			fmt.Printf("      note: %s\n", *e.Note)
		}
	}
}

func (o *Output) printEncounterDetail(d EncounterDetail) {
	name := d.Other.PublicID
	if d.Other.DisplayName != nil {
		name = *d.Other.DisplayName
	}
	fmt.Printf("Encounter: %s\n", d.ID)
	fmt.Printf("Met: %s at %s\n", name, d.CreatedAt.Format("2006-01-02 15:04"))
	if d.Rating != nil {
		fmt.Printf("Your rating: %d/5\n", *d.Rating)
	}
	if d.Note != nil && *d.Note != "" {
		fmt.Printf("Your note: %s\n", *d.Note)
	}
	if d.OtherProfile != nil {
		fmt.Println("\nTheir profile:")
		o.printProfile(*d.OtherProfile)
	}
}

func (o *Output) printParticipantList(l ParticipantList) {
	fmt.Printf("Participants (%d):\n", len(l.Participants))
	for _, p := range l.Participants {
		line := fmt.Sprintf("  - %s (%s)", displayName(p.Profile), p.ParticipantID)
		if p.Profile.Niche != nil {
			line += fmt.Sprintf("  %s", *p.Profile.Niche)
		}
		fmt.Println(line)
	}
}

func (o *Output) printStats(s StatsResult) {
	fmt.Printf("Encounters: %d\n", s.Encounters)
	fmt.Printf("Rated: %d\n", s.Rated)
	if s.AvgRating != nil {
		fmt.Printf("Average rating: %.1f\n", *s.AvgRating)
	}
	fmt.Printf("Notes: %d\n", s.Notes)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
