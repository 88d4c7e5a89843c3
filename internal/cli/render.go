package cli

import (
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/splitroom/splitroom/internal/message"
	"github.com/splitroom/splitroom/internal/room"
)

// palette is the set of colors sender names are drawn from.
var palette = []color.Color{
	color.FgCyan,
	color.FgGreen,
	color.FgYellow,
	color.FgMagenta,
	color.FgBlue,
	color.FgLightRed,
}

// paletteIndex maps a display name to a stable palette slot. Same name,
// same color, with no shared mutable lookup behind it.
func paletteIndex(name string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int(h.Sum32() % uint32(len(palette)))
}

// Renderer writes the room transcript, transient notices and the bill
// panel. Writes are serialized because both the input loop and the live
// session's read loop render.
type Renderer struct {
	mu   sync.Mutex
	out  io.Writer
	self string
}

// NewRenderer creates a renderer for the local user's point of view.
func NewRenderer(out io.Writer, self string) *Renderer {
	return &Renderer{out: out, self: strings.TrimSpace(self)}
}

// Message prints one transcript line. The local user renders as "You";
// the color slot still follows the real name so it stays stable across
// participants' screens.
func (r *Renderer) Message(m message.Message) {
	if m.Empty() {
		return
	}

	name := m.Sender
	if name == r.self {
		name = "You"
	}
	styled := color.New(palette[paletteIndex(m.Sender)]).Render(name)

	body := m.Text
	if m.IsProof() {
		if body != "" {
			body += " "
		}
		body += "[proof] " + m.ProofURL
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s: %s\n", m.CreatedAt.Format("15:04"), styled, body)
}

// Notice prints a dimmed transient line (joins, leaves, upload results).
func (r *Renderer) Notice(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, color.New(color.OpFuzzy).Render("-- "+text))
}

// Bill prints the bill panel: the menu, the total, and the per-person
// share for everyone currently in the room.
func (r *Renderer) Bill(rm room.Room, split room.Split, online []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm.Title != "" {
		fmt.Fprintln(r.out, color.New(color.OpBold).Render(rm.Title))
	}

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Item", "Price"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, it := range rm.Menu {
		table.Append([]string{it.Name, formatPrice(it.Price)})
	}
	table.SetFooter([]string{"Total", formatPrice(split.Total)})
	table.Render()

	who := append([]string{"You"}, online...)
	fmt.Fprintf(r.out, "%d in room (%s), each pays %s\n",
		split.Participants, strings.Join(who, ", "), formatPrice(split.Share))
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
