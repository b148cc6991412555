package livetable

import (
	"fmt"
	"strings"
)

// Badge markup for the operating systems the testbed reports.
const (
	FedoraBadge = `<img src="/assets/img/fedora-logo.png">`
	CentosBadge = `<img src="/assets/img/centos-logo.png">`
	UbuntuBadge = `<img src="/assets/img/ubuntu-logo.png">`
	OtherBadge  = `<img src="/assets/img/other-logo.png">`
)

// TestbedOptions configures the testbed view.
type TestbedOptions struct {
	// Badges maps "fedora", "centos", "ubuntu" and "other" to header markup.
	// Missing entries use the default badges.
	Badges map[string]string
}

// TestbedView renders the hardware status of the testbed nodes:
// id, availability, power, SDR, ping, ssh, last O.S. and last image.
type TestbedView struct {
	badges map[string]string
}

// NewTestbedView creates the testbed view.
func NewTestbedView(opts TestbedOptions) *TestbedView {
	badges := map[string]string{
		"fedora": FedoraBadge,
		"centos": CentosBadge,
		"ubuntu": UbuntuBadge,
		"other":  OtherBadge,
	}
	for k, v := range opts.Badges {
		badges[k] = v
	}
	return &TestbedView{badges: badges}
}

var testbedColumns = []Column{
	{Label: "#", Tooltip: "node #"},
	{Label: `<span class="fa fa-check-square-o"></span>`, Tooltip: "availability"},
	{Label: `<span class="fa fa-toggle-off"></span>`, Tooltip: "on/off"},
	{Label: "sdr"},
	{Label: `<span class="fa fa-link"></span>`, Tooltip: "ping"},
	{Label: `<span class="fa fa-circle-o"></span>`, Tooltip: "ssh"},
	{Label: "last O.S."},
	{Label: "last image"},
}

var testbedKeys = []string{
	"id", "available", "cmc_on_off",
	"usrp_on_off", "usrp_type", "usrp_duplexer", "gnuradio_release",
	"control_ping", "control_ssh",
	"os_release", "uname", "image_radical",
}

// Columns implements View.
func (v *TestbedView) Columns() []Column { return testbedColumns }

// Keys implements View.
func (v *TestbedView) Keys() []string { return testbedKeys }

// InitialCells implements View. Only the id badge is known up front.
func (v *TestbedView) InitialCells(id int) []*Cell {
	cells := make([]*Cell, len(testbedColumns))
	cells[0] = idCell(id)
	return cells
}

// ComputeCells implements View.
func (v *TestbedView) ComputeCells(a Attributes) []*Cell {
	ssh := a.Text("control_ssh")
	return []*Cell{
		idCell(a["id"]),
		availableCell(a),
		onOffCell(a),
		sdrCell(a, true),
		pingCell(a),
		sshCell(a),
		v.releaseCell(a.Text("os_release"), a.Defined("os_release"), a["uname"], ssh),
		imageCell(a, ssh),
	}
}

// IsNoteworthy implements View: a node is worth following when something on
// it is powered or reachable, and it is not marked unavailable.
func (v *TestbedView) IsNoteworthy(a Attributes) bool {
	busy := a.Text("cmc_on_off") == "on" ||
		a.Text("usrp_on_off") == "on" ||
		a.Text("control_ping") == "on" ||
		a.Text("control_ssh") == "on"
	return busy && a.Text("available") != "ko"
}

func idCell(id any) *Cell {
	return &Cell{HTML: SpanHTML(id, "badge pointer")}
}

func availableCell(a Attributes) *Cell {
	if a.Text("available") == "ko" {
		return &Cell{HTML: SpanHTML("", "fa fa-ban"), Class: "error", Tooltip: "unavailable"}
	}
	return &Cell{HTML: SpanHTML("", "fa fa-check"), Class: "ok", Tooltip: "node is OK for exps"}
}

func onOffCell(a Attributes) *Cell {
	switch a.Text("cmc_on_off") {
	case "fail":
		return &Cell{HTML: "N/A", Class: "error", Tooltip: "unavailable - DO NOT USE"}
	case "on":
		return &Cell{HTML: SpanHTML("", "fa fa-toggle-on"), Class: "ok", Tooltip: "ON"}
	}
	return &Cell{HTML: SpanHTML("", "fa fa-toggle-off"), Class: "ko", Tooltip: "OFF"}
}

// sdrCell shows the radio type, optionally its duplexer, and its power state.
func sdrCell(a Attributes, mentionDuplexer bool) *Cell {
	alt := "no gnuradio installed"
	if a.Truthy("gnuradio_release") {
		alt = fmt.Sprintf("gnuradio_release = %v", a["gnuradio_release"])
	}

	text := "-"
	if a.Truthy("usrp_type") {
		text = fmt.Sprint(a["usrp_type"])
	}
	if mentionDuplexer && a.Truthy("usrp_duplexer") {
		text += fmt.Sprintf("/%v", a["usrp_duplexer"])
	}
	text += " "

	var class string
	switch a.Text("usrp_on_off") {
	case "on":
		text += SpanHTML("", "fa fa-toggle-on")
		class = "ok"
	case "off":
		text += SpanHTML("", "fa fa-toggle-off")
		class = "ko"
	default:
		text += SpanHTML("", "fa fa-toggle-off")
		class = "error"
	}
	return &Cell{HTML: fmt.Sprintf(`<span title="%s">%s</span>`, alt, text), Class: class}
}

func pingCell(a Attributes) *Cell {
	if a.Text("control_ping") == "on" {
		return &Cell{HTML: SpanHTML("", "fa fa-link"), Class: "ok"}
	}
	return &Cell{HTML: SpanHTML("", "fa fa-unlink"), Class: "ko"}
}

func sshCell(a Attributes) *Cell {
	if a.Text("control_ssh") == "on" {
		return &Cell{HTML: SpanHTML("", "fa fa-circle"), Class: "ok"}
	}
	return &Cell{HTML: SpanHTML("", "fa fa-circle-o"), Class: "ko"}
}

func (v *TestbedView) releaseCell(release string, defined bool, uname any, ssh string) *Cell {
	class := "os ko"
	if ssh == "on" {
		class = "os ok"
	}
	if !defined {
		return &Cell{HTML: Placeholder, Class: class}
	}
	if uname == nil {
		uname = "undefined"
	}
	tooltip := func(main string) string {
		return fmt.Sprintf(`<span data-toggle="tooltip" title="last uname=%v">%s</span>`, uname, main)
	}
	for _, distro := range []string{"fedora", "centos", "ubuntu"} {
		if strings.HasPrefix(release, distro) {
			return &Cell{HTML: tooltip(v.badges[distro] + " " + release), Class: class}
		}
	}
	if release == "other" {
		return &Cell{HTML: tooltip(v.badges["other"] + " (ssh OK)"), Class: class}
	}
	return &Cell{HTML: Placeholder, Class: class}
}

func imageCell(a Attributes, ssh string) *Cell {
	class := "image ko"
	if ssh == "on" {
		class = "image ok"
	}
	if !a.Defined("image_radical") {
		return &Cell{HTML: Placeholder, Class: class}
	}
	return &Cell{HTML: fmt.Sprint(a["image_radical"]), Class: class}
}
