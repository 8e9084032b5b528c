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
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigHandler(t *testing.T) {
	Log = quietLogger()
	dir, err := ioutil.TempDir("", "gaden_config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	cfgFile := filepath.Join(dir, "player.toml")
	if err := ioutil.WriteFile(cfgFile, []byte("LoopToIteration = 42\n"), 0644); err != nil {
		t.Fatal(err)
	}
	defer Root.PersistentFlags().Set("config", "")

	w := httptest.NewRecorder()
	configHandler(w, httptest.NewRequest("GET", "/setConfig", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing config: want status %d but have %d", http.StatusBadRequest, w.Code)
	}

	w = httptest.NewRecorder()
	configHandler(w, httptest.NewRequest("GET", "/setConfig?config="+url.QueryEscape(cfgFile), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if v, ok := cfg["LoopToIteration"].(float64); !ok || v != 42 {
		t.Errorf("LoopToIteration: want 42 but have %v", cfg["LoopToIteration"])
	}
	if _, ok := cfg["Sources"]; !ok {
		t.Error("missing Sources option")
	}
}
