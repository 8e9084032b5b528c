/*
Copyright © 2024 the gaden player authors.
This file is part of the gaden player.

The gaden player is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

The gaden player is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the gaden player.  If not, see <http://www.gnu.org/licenses/>.
*/

package gadenutil

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/ctessum/gobra"
	"github.com/skratchdot/open-golang/open"
)

// guiAddress is the address of the configuration GUI.
const guiAddress = "localhost:7171"

// configHandler reads the configuration file given in the "config" form
// value and returns the resulting value of every option as JSON.
func configHandler(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	configFile := r.Form.Get("config")
	if configFile == "" {
		http.Error(w, "missing config parameter", http.StatusBadRequest)
		return
	}
	Root.PersistentFlags().Set("config", configFile)
	if err := setConfig(); err != nil {
		http.Error(w, err.Error(), http.StatusNoContent)
		return
	}
	config := make(map[string]interface{})
	for _, option := range options {
		config[option.name] = Cfg.Get(option.name)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// guiPage wraps the command forms. Changing the config field loads that
// file and copies the values it sets into the other fields.
const guiPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>gadenplayer</title></head>
<body>
<h1>gadenplayer</h1>
{{.}}
<script>
const fields = [...document.querySelectorAll("[data-name]")];
const field = name => fields.find(f => f.dataset.name == name);
field("config").children[0].addEventListener("change", e => {
	fetch("/setConfig?config=" + encodeURIComponent(e.target.value))
		.then(res => res.status == 200 ? res.json() : {})
		.then(cfg => {
			for (const name in cfg) {
				const f = field(name);
				if (f && cfg[name] != null) f.children[0].value = cfg[name];
			}
		});
});
</script>
</body>
</html>`

// StartWebServer serves a browser GUI for configuring and running the
// player commands. It blocks until the server stops.
func StartWebServer() {
	if err := setConfig(); err != nil {
		Log.WithError(err).Warn("reading configuration")
	}
	http.HandleFunc("/setConfig", configHandler)

	Root.SilenceUsage = true
	for _, cmd := range Root.Commands() {
		cmd.SilenceUsage = true
	}
	server := gobra.Server{
		Root:          Root,
		ServerAddress: guiAddress,
		HTML:          template.Must(template.New("gui").Parse(guiPage)),
	}
	addr := "http://" + guiAddress
	Log.WithField("address", addr).Info("starting configuration GUI")
	if err := open.Run(addr); err != nil {
		Log.Infof("open %s in a browser to use the GUI", addr)
	}
	server.Start()
}
