package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPreservesScalarTypes(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		raw    string
	}{
		{
			name:   "json",
			format: FormatJSON,
			raw:    `{"network": {"port": 8080, "host": "svc-a", "tls": false}}`,
		},
		{
			name:   "yaml",
			format: FormatYAML,
			raw: `
network:
  port: 8080
  host: svc-a
  tls: false
`,
		},
		{
			name:   "toml",
			format: FormatTOML,
			raw: `
[network]
port = 8080
host = "svc-a"
tls = false
`,
		},
		{
			name:   "cue",
			format: FormatCUE,
			raw: `
network: {
	port: 8080
	host: "svc-a"
	tls:  false
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Load("test", []byte(tt.raw), tt.format)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}

			network, ok := doc.Root().Key("network")
			if !ok {
				t.Fatal("network key missing")
			}

			port, _ := network.Key("port")
			if port == nil || port.Kind() != KindNumber || port.NumberValue() != 8080 {
				t.Errorf("port = %v, want number 8080", port)
			}

			host, _ := network.Key("host")
			if host == nil || host.Kind() != KindString || host.StringValue() != "svc-a" {
				t.Errorf("host = %v, want string svc-a", host)
			}

			tls, _ := network.Key("tls")
			if tls == nil || tls.Kind() != KindBool || tls.BoolValue() {
				t.Errorf("tls = %v, want bool false", tls)
			}
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		raw    string
	}{
		{name: "bad json", format: FormatJSON, raw: `{"a": `},
		{name: "bad yaml", format: FormatYAML, raw: "a: [unclosed"},
		{name: "bad toml", format: FormatTOML, raw: "a = "},
		{name: "unresolved cue", format: FormatCUE, raw: "a: int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("bad", []byte(tt.raw), tt.format)
			if err == nil {
				t.Fatal("expected parse error")
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if perr.Source != "bad" {
				t.Errorf("ParseError.Source = %q, want %q", perr.Source, "bad")
			}
		})
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "config.json", want: FormatJSON},
		{path: "config.yaml", want: FormatYAML},
		{path: "config.yml", want: FormatYAML},
		{path: "config.toml", want: FormatTOML},
		{path: "config.cue", want: FormatCUE},
		{path: "config.YAML", want: FormatYAML},
		{path: "config.ini", wantErr: true},
		{path: "config", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatForPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatForPath() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatForPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.yaml")
	raw := "network:\n  port: 8080\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadFile("service_a", path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if doc.Name() != "service_a" {
		t.Errorf("Name() = %q, want %q", doc.Name(), "service_a")
	}

	network, _ := doc.Root().Key("network")
	if network == nil {
		t.Fatal("network key missing")
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("gone", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
}
