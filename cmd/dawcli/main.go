// Package main provides the aidaw CLI, a development client for the
// JSON API. It doubles as the external transport clock via `seek`.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("aidaw", "aidaw session client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "API token (or AIDAW_API_TOKEN)").Envar("AIDAW_API_TOKEN").String()

	tracksCmd = app.Command("tracks", "List session tracks")

	uploadCmd  = app.Command("upload", "Import an audio file as a new track")
	uploadFile = uploadCmd.Arg("file", "Audio file to import").Required().ExistingFile()

	setCmd    = app.Command("set", "Update a track's fields")
	setID     = setCmd.Arg("track-id", "Track ID").Required().String()
	setName   = setCmd.Flag("name", "New display name").String()
	setVolume = setCmd.Flag("volume", "Fader level 0-100").Default("-1").Int()
	setMute   = setCmd.Flag("mute", "Mute state (on|off)").Enum("on", "off")
	setSolo   = setCmd.Flag("solo", "Solo state (on|off)").Enum("on", "off")

	removeCmd = app.Command("remove", "Remove a track")
	removeID  = removeCmd.Arg("track-id", "Track ID").Required().String()

	statusCmd = app.Command("status", "Show transport state")
	playCmd   = app.Command("play", "Start the transport")
	pauseCmd  = app.Command("pause", "Pause the transport")
	stopCmd   = app.Command("stop", "Stop and rewind the transport")

	seekCmd = app.Command("seek", "Move the playhead")
	seekPos = seekCmd.Arg("seconds", "Playhead position in seconds").Required().Float64()

	exportCmd    = app.Command("export", "Mix and master the session")
	exportFormat = exportCmd.Flag("format", "Artifact format (wav|mp3)").Default("wav").Enum("wav", "mp3")
	exportOut    = exportCmd.Flag("out", "Output path (default: suggested filename)").String()
)

type trackView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Volume     int    `json:"volume"`
	Muted      bool   `json:"muted"`
	Solo       bool   `json:"solo"`
	HasSource  bool   `json:"has_source"`
	SourceMIME string `json:"source_mime"`
}

type transportView struct {
	State    string  `json:"state"`
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
	Elapsed  string  `json:"elapsed"`
	Busy     bool    `json:"busy"`
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case tracksCmd.FullCommand():
		listTracks()
	case uploadCmd.FullCommand():
		upload(*uploadFile)
	case setCmd.FullCommand():
		setTrack(*setID)
	case removeCmd.FullCommand():
		removeTrack(*removeID)
	case statusCmd.FullCommand():
		transport(http.MethodGet, "/api/transport", nil)
	case playCmd.FullCommand():
		transport(http.MethodPost, "/api/transport/play", nil)
	case pauseCmd.FullCommand():
		transport(http.MethodPost, "/api/transport/pause", nil)
	case stopCmd.FullCommand():
		transport(http.MethodPost, "/api/transport/stop", nil)
	case seekCmd.FullCommand():
		body := fmt.Sprintf(`{"position": %g}`, *seekPos)
		transport(http.MethodPost, "/api/transport/seek", strings.NewReader(body))
	case exportCmd.FullCommand():
		runExport(*exportFormat, *exportOut)
	}
}

// do sends a request and fails the command on transport errors.
func do(method, path string, body io.Reader, contentType string) *http.Response {
	req, err := http.NewRequest(method, *server+path, body)
	if err != nil {
		fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err)
	}
	return resp
}

// decodeOrFail decodes a JSON response, printing the server's error on
// non-2xx statuses.
func decodeOrFail(resp *http.Response, into any) {
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		failFromResponse(resp)
	}
	if into == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		fatal(err)
	}
}

func failFromResponse(resp *http.Response) {
	payload, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != "" {
		fmt.Printf("Error (%d): %s\n", resp.StatusCode, apiErr.Error)
	} else {
		fmt.Printf("Error: server returned status %d\n", resp.StatusCode)
	}
	os.Exit(1)
}

func fatal(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func listTracks() {
	resp := do(http.MethodGet, "/api/tracks", nil, "")

	var body struct {
		Tracks []trackView `json:"tracks"`
	}
	decodeOrFail(resp, &body)

	if len(body.Tracks) == 0 {
		fmt.Println("No tracks.")
		return
	}
	for i, t := range body.Tracks {
		flags := make([]string, 0, 2)
		if t.Muted {
			flags = append(flags, "muted")
		}
		if t.Solo {
			flags = append(flags, "solo")
		}
		state := ""
		if len(flags) > 0 {
			state = " [" + strings.Join(flags, ",") + "]"
		}
		audio := "no audio"
		if t.HasSource {
			audio = t.SourceMIME
		}
		fmt.Printf("%2d. %s  vol=%d%s  (%s)\n    id=%s\n", i+1, t.Name, t.Volume, state, audio, t.ID)
	}
}

func upload(path string) {
	f, err := os.Open(path)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		fatal(err)
	}
	if _, err := io.Copy(part, f); err != nil {
		fatal(err)
	}
	if err := w.Close(); err != nil {
		fatal(err)
	}

	resp := do(http.MethodPost, "/api/tracks", &buf, w.FormDataContentType())

	var body struct {
		Track trackView `json:"track"`
	}
	decodeOrFail(resp, &body)
	fmt.Printf("Added track %q (id=%s)\n", body.Track.Name, body.Track.ID)
}

func setTrack(id string) {
	patch := make(map[string]any)
	if *setName != "" {
		patch["name"] = *setName
	}
	if *setVolume >= 0 {
		patch["volume"] = *setVolume
	}
	if *setMute != "" {
		patch["muted"] = *setMute == "on"
	}
	if *setSolo != "" {
		patch["solo"] = *setSolo == "on"
	}
	if len(patch) == 0 {
		fmt.Println("Nothing to change; pass --name, --volume, --mute or --solo.")
		os.Exit(1)
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		fatal(err)
	}

	resp := do(http.MethodPatch, "/api/tracks/"+id, bytes.NewReader(payload), "application/json")

	var body struct {
		Track trackView `json:"track"`
	}
	decodeOrFail(resp, &body)
	fmt.Printf("Updated %q: vol=%d muted=%v solo=%v\n",
		body.Track.Name, body.Track.Volume, body.Track.Muted, body.Track.Solo)
}

func removeTrack(id string) {
	resp := do(http.MethodDelete, "/api/tracks/"+id, nil, "")
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		failFromResponse(resp)
	}
	fmt.Println("Track removed.")
}

func transport(method, path string, body io.Reader) {
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	resp := do(method, path, body, contentType)

	var ts transportView
	decodeOrFail(resp, &ts)

	busy := ""
	if ts.Busy {
		busy = "  (export in progress, controls disabled)"
	}
	fmt.Printf("%s at %s%s\n", ts.State, ts.Elapsed, busy)
}

func runExport(format, out string) {
	resp := do(http.MethodPost, "/api/export?format="+format, nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		failFromResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err)
	}

	if out == "" {
		out = suggestedFilename(resp.Header.Get("Content-Disposition"), "mastered."+format)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
}

// suggestedFilename pulls the filename out of a Content-Disposition
// header, falling back when the header is absent or unparseable.
func suggestedFilename(disposition, fallback string) string {
	const marker = "filename="
	i := strings.Index(disposition, marker)
	if i < 0 {
		return fallback
	}
	name := strings.Trim(disposition[i+len(marker):], `"`)
	if name == "" {
		return fallback
	}
	return filepath.Base(name)
}
