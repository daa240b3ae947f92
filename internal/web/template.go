package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/bulb-driver/internal/color"
	"github.com/sweeney/bulb-driver/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"percent": func(f float64) string {
		return fmt.Sprintf("%.1f%%", f*100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Bulb Driver</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.fault { color: red; }
</style>
</head>
<body>
<h1>Bulb Driver</h1>

<h2>Light</h2>
<table>
<tr><th>State</th><td class="{{if eq .State "ON"}}on{{else if eq .State "OFF"}}off{{else}}unknown{{end}}">{{.State}}</td></tr>
<tr><th>Mode</th><td>{{.ModeName}}</td></tr>
<tr><th>Brightness</th><td>{{percent .Values.Brightness}}</td></tr>
{{if .Values.ColorMode}}<tr><th>Colour mode</th><td>{{.Values.ColorMode}}</td></tr>{{end}}
</table>

<h2>Duties</h2>
<table>
{{range .Duties}}<tr><th>{{.Channel}}</th><td>{{percent .Duty}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .MQTTDropped}} ({{.MQTTDropped}} dropped){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}: {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Mode Counts</h2>
<table>
<tr><th>Off</th><td>{{.Counts.Off}}</td></tr>
<tr><th>Night light</th><td>{{.Counts.NightLight}}</td></tr>
<tr><th>White light</th><td>{{.Counts.WhiteLight}}</td></tr>
<tr><th>RGB light</th><td>{{.Counts.RGBLight}}</td></tr>
<tr><th>Faults</th><td{{if .Counts.Faults}} class="fault"{{end}}>{{.Counts.Faults}}</td></tr>
{{if .LastFault}}<tr><th>Last fault</th><td class="fault">{{.LastFault.At.UTC.Format "2006-01-02T15:04:05Z"}} {{.LastFault.Message}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>PWM period</th><td>{{.Config.PWMPeriodUs}}µs</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type channelDuty struct {
	Channel color.Channel
	Duty    float64
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		State    string
		ModeName string
		Duties   []channelDuty
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		State:    status.StateString(snap),
		ModeName: status.ModeString(snap),
	}
	for _, ch := range color.Channels {
		data.Duties = append(data.Duties, channelDuty{Channel: ch, Duty: snap.Outputs.Duty(ch)})
	}

	// Render to a buffer so a template error never leaves a half-written page.
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
