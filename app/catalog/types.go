package catalog

const (
	KindModel = "model"
	KindInfo  = "info"
)

type Catalog struct {
	Version     string              `yaml:"version"`
	Keywords    Keywords            `yaml:"keywords"`
	Engines     map[string]Engine   `yaml:"engines"`
	KindEngines map[string][]string `yaml:"kind_engines"`
	Entries     []Entry             `yaml:"sources"`
}

type Keywords struct {
	Core         []string `yaml:"core"`
	AI           []string `yaml:"ai"`
	CatchAllTags []string `yaml:"catch_all_tags"`
}

// Engine is a news search engine exposing an RSS endpoint. URL must contain {query}.
type Engine struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Entry is one logical query before it is expanded per engine.
type Entry struct {
	Platform  string   `yaml:"platform"`
	Tag       string   `yaml:"tag"`
	Kind      string   `yaml:"kind"`
	Query     string   `yaml:"query"`
	Hints     []string `yaml:"hints"`
	RequireAI bool     `yaml:"require_ai"`
	Engines   []string `yaml:"engines"`
}

// Source is a concrete feed to poll: one entry issued against one engine.
type Source struct {
	Platform   string
	Tag        string
	Kind       string
	Query      string
	URL        string
	Engine     string
	SourceName string
	Hints      []string
	RequireAI  bool
}

type Platform struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}
