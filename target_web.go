package livetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebTarget serves the live table to web browsers.
// The page at / applies patches streamed over the websocket at /ws and sends
// header clicks back as view mode toggles. A click on a row's first cell
// hides that row in the clicking page only, until the next visibility pass.
// Websocket clients may still send dismiss gestures, which hide the row for
// everyone. The current table is also available as JSON at /api/table.
type WebTarget struct {
	addr         string
	title        string
	server       *http.Server
	frame        *Frame
	mu           sync.RWMutex
	started      bool
	controller   Controller
	upgrader     websocket.Upgrader
	subscribers  map[ulid.ULID]*subscriber
	sendBuffer   int
	writeTimeout time.Duration
}

type subscriber struct {
	id   ulid.ULID
	send chan []byte
}

// WebOption configures a WebTarget.
type WebOption func(*WebTarget)

// WithTitle sets the page title.
func WithTitle(title string) WebOption {
	return func(t *WebTarget) {
		t.title = title
	}
}

// WithSendBuffer sets how many messages may queue for one browser before
// it is dropped as too slow.
func WithSendBuffer(n int) WebOption {
	return func(t *WebTarget) {
		t.sendBuffer = n
	}
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) WebOption {
	return func(t *WebTarget) {
		t.upgrader.CheckOrigin = fn
	}
}

// NewWebTarget creates a target that serves the table via HTTP on addr.
// An empty addr starts no listener; mount Handler in an existing server instead.
func NewWebTarget(addr string, opts ...WebOption) (*WebTarget, error) {
	target := &WebTarget{
		addr:         addr,
		title:        "livetable",
		subscribers:  make(map[ulid.ULID]*subscriber),
		sendBuffer:   64,
		writeTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(target)
	}

	return target, nil
}

// Name implements Target.
func (t *WebTarget) Name() string {
	return fmt.Sprintf("WebTarget(%s)", t.addr)
}

// SetController sets where browser gestures go.
func (t *WebTarget) SetController(c Controller) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.controller = c
}

// Update implements Target.
func (t *WebTarget) Update(ctx context.Context, frame *Frame) error {
	t.mu.Lock()
	t.frame = frame
	if !frame.Patch.Empty() {
		if err := t.broadcastLocked(frame); err != nil {
			t.mu.Unlock()
			return err
		}
	}
	wasStarted := t.started
	t.mu.Unlock()

	// Auto-start server on first update
	if !wasStarted {
		return t.start()
	}
	return nil
}

func (t *WebTarget) broadcastLocked(frame *Frame) error {
	data, err := patchMessage(frame)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	for id, sub := range t.subscribers {
		select {
		case sub.send <- data:
		default:
			glog.Infof("web: subscriber %s too slow, dropped", id)
			delete(t.subscribers, id)
			close(sub.send)
		}
	}
	return nil
}

// Subscribers returns the number of connected browsers.
func (t *WebTarget) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}

// Handler returns the HTTP handler for embedding in existing servers.
func (t *WebTarget) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoint
	mux.HandleFunc("/api/table", t.handleTable)

	// Live patches
	mux.HandleFunc("/ws", t.handleWS)

	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", t.handleIndex)

	return mux
}

func (t *WebTarget) handleTable(w http.ResponseWriter, r *http.Request) {
	t.mu.RLock()
	frame := t.frame
	t.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	json.NewEncoder(w).Encode(FrameToJSON(frame))
}

func (t *WebTarget) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("web: upgrade error = %s", err)
		return
	}

	sub := &subscriber{id: ulid.Make(), send: make(chan []byte, t.sendBuffer+1)}

	// The replay is queued under the same lock as broadcasts, so the
	// subscriber sees every patch after it exactly once.
	t.mu.Lock()
	reset, err := resetMessage(t.frame)
	if err != nil {
		t.mu.Unlock()
		conn.Close()
		glog.Warningf("web: encode reset: %v", err)
		return
	}
	sub.send <- reset
	t.subscribers[sub.id] = sub
	t.mu.Unlock()
	glog.Infof("web: subscriber %s joined from %s", sub.id, r.RemoteAddr)

	go t.writeLoop(conn, sub)
	t.readLoop(conn, sub)
}

func (t *WebTarget) writeLoop(conn *websocket.Conn, sub *subscriber) {
	defer conn.Close()
	for data := range sub.send {
		conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			glog.Infof("web: subscriber %s write error = %s", sub.id, err)
			return
		}
	}
}

func (t *WebTarget) readLoop(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		t.unsubscribe(sub.id)
		conn.Close()
		glog.Infof("web: subscriber %s left", sub.id)
	}()
	for {
		var msg ClientJSON
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		t.handleGesture(msg)
	}
}

func (t *WebTarget) handleGesture(msg ClientJSON) {
	t.mu.RLock()
	controller := t.controller
	t.mu.RUnlock()
	if controller == nil {
		return
	}

	switch msg.Action {
	case clientToggle:
		controller.ToggleViewMode()
	case clientDismiss:
		controller.Dismiss(msg.Key)
	default:
		glog.V(2).Infof("web: unknown gesture %q", msg.Action)
	}
}

func (t *WebTarget) unsubscribe(id ulid.ULID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sub, ok := t.subscribers[id]; ok {
		delete(t.subscribers, id)
		close(sub.send)
	}
}

type pageData struct {
	Title   string
	Columns []Column
	Width   int
}

func (t *WebTarget) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	t.mu.RLock()
	frame := t.frame
	t.mu.RUnlock()

	data := pageData{Title: t.title}
	if frame != nil {
		data.Columns = frame.Columns
		data.Width = len(frame.Columns)
	}

	w.Header().Set("Content-Type", "text/html")
	if err := pageTemplate.Execute(w, data); err != nil {
		glog.Warningf("web: render page: %v", err)
	}
}

func (t *WebTarget) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}
	t.started = true
	if t.addr == "" {
		return nil
	}

	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.Handler(),
	}

	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("web: serve %s: %v", t.addr, err)
		}
	}()

	return nil
}

// Close implements Target.
func (t *WebTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, sub := range t.subscribers {
		delete(t.subscribers, id)
		close(sub.send)
	}
	if t.server != nil {
		return t.server.Shutdown(context.Background())
	}
	return nil
}

// URL returns the URL where the web target is serving.
func (t *WebTarget) URL() string {
	return "http://localhost" + t.addr
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"markup": func(s string) template.HTML { return template.HTML(s) },
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: system-ui; padding: 1rem; }
        table { border-collapse: collapse; }
        th, td { padding: 0.2rem 0.6rem; text-align: center; }
        td.ok { background: #d4edda; }
        td.ko { background: #eeeeee; }
        td.error { background: #f8d7da; }
        .livecolumns_header tr { cursor: pointer; }
        .livecolumns_header tr:not(.all) { background: #ffeeba; }
    </style>
</head>
<body>
<table id="livetable_container">
    <thead class="livecolumns_header"><tr class="all">{{range .Columns}}<th title="{{.Tooltip}}">{{markup .Label}}</th>{{end}}</tr></thead>
    <tbody class="livecolumns_body"></tbody>
    <tfoot class="livecolumns_header"><tr class="all">{{range .Columns}}<th title="{{.Tooltip}}">{{markup .Label}}</th>{{end}}</tr></tfoot>
</table>
<script>
(function() {
    var width = {{.Width}};
    var body = document.querySelector("tbody.livecolumns_body");
    var headers = document.querySelectorAll(".livecolumns_header tr");
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "/ws");

    function send(msg) {
        if (ws.readyState === 1) ws.send(JSON.stringify(msg));
    }
    function setMode(mode) {
        headers.forEach(function(tr) { tr.classList.toggle("all", mode === "all"); });
    }
    headers.forEach(function(tr) {
        tr.addEventListener("click", function() { send({action: "toggle"}); });
    });

    function apply(op) {
        var row = op.key ? document.getElementById(op.key) : null;
        switch (op.op) {
        case "insert":
            row = document.createElement("tr");
            row.id = op.key;
            for (var i = 0; i < width; i++) row.appendChild(document.createElement("td"));
            body.insertBefore(row, body.rows[op.index || 0] || null);
            break;
        case "remove":
            if (row) row.remove();
            break;
        case "cell":
            if (!row) break;
            var td = row.cells[op.col || 0];
            if (!td) break;
            td.innerHTML = op.html || "";
            td.className = op["class"] || "";
            td.setAttribute("data-toggle", "tooltip");
            td.title = op.tooltip || "";
            break;
        case "show":
            if (row) row.style.display = "";
            break;
        case "hide":
            if (row) row.style.display = "none";
            break;
        case "mode":
            setMode(op.mode);
            break;
        }
    }

    function bind() {
        Array.prototype.forEach.call(body.rows, function(tr) {
            var td = tr.cells[0];
            if (td) td.onclick = function() { tr.style.display = "none"; };
        });
    }

    ws.onmessage = function(ev) {
        var msg = JSON.parse(ev.data);
        if (msg.reset) {
            body.innerHTML = "";
            setMode(msg.mode);
        }
        (msg.ops || []).forEach(apply);
        if (msg.rebind) bind();
    };
})();
</script>
</body>
</html>`
