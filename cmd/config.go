package cmd

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
)

type Config struct {
	Mode string

	NumSequences     int
	UniverseSize     int
	MeanSentenceSize float64
	StdSentenceSize  float64
	MeanItemsetSize  float64
	StdItemsetSize   float64
	Seed             int64
	Unseeded         bool

	OutputDir    string
	OutputFormat string
	Samples      int
	InputFile    string
	ResultsDir   string
	MetricsFile  string
	Labels       string
	LabelMap     map[string]string

	ExporterDir  string
	ExporterPort int

	PrometheusConfig PrometheusConfig
	InfluxDBConfig   InfluxDBConfig
}

var labelNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// reservedLabels holds every key the results file and the metric label sets
// already use. User labels must not shadow them.
var reservedLabels = func() map[string]bool {
	data, err := json.Marshal(ResultsJSONDataset{Seed: new(int64), Unseeded: true})
	if err != nil {
		panic(err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		panic(err)
	}
	reserved := lo.MapValues(fields, func(interface{}, string) bool { return true })
	return lo.Assign(reserved, map[string]bool{"dataset": true, "job": true, "instance": true})
}()

func (c *Config) Validate() error {
	if err := c.validateCommon(); err != nil {
		return err
	}

	// validate specific
	switch c.Mode {
	case "generate":
		return c.validateGenerate()
	case "stats":
		return c.validateStats()
	case "exporter":
		return c.validateExporter()
	default:
		return errors.Errorf("unrecognized mode %q", c.Mode)
	}
}

func (c *Config) validateCommon() error {
	switch c.OutputFormat {
	case "text", "":
		c.OutputFormat = "text"
	case "json":
	default:
		return errors.Errorf("unsupported output format %q, must be one of [text, json]",
			c.OutputFormat)
	}

	if c.Samples < 0 {
		return errors.Errorf("number of sample sequences must not be negative")
	}

	return nil
}

func (c *Config) validateGenerate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}

	if c.OutputDir == "" {
		c.OutputDir = "."
	}

	c.parseLabels()
	for key := range c.LabelMap {
		switch {
		case !labelNameRE.MatchString(key):
			return errors.Errorf("invalid label name %q", key)
		case strings.HasPrefix(key, "__"):
			return errors.Errorf("label name %q uses the reserved \"__\" prefix", key)
		case reservedLabels[key]:
			return errors.Errorf("label name %q collides with a built-in result field", key)
		}
	}

	if c.PrometheusConfig.PushURL != "" {
		c.PrometheusConfig.Enabled = true
		if c.PrometheusConfig.JobName == "" {
			return errors.Errorf("a pushgateway job name must be set")
		}
	}

	if c.InfluxDBConfig.URL != "" {
		c.InfluxDBConfig.Enabled = true
		if c.InfluxDBConfig.Org == "" || c.InfluxDBConfig.Bucket == "" {
			return errors.Errorf("influxdb org and bucket must be set when pushing to influxdb")
		}
	}

	return nil
}

func (c Config) validateStats() error {
	if c.InputFile == "" {
		return errors.Errorf("an SPMF input file must be provided")
	}

	return nil
}

func (c Config) validateExporter() error {
	if c.ExporterDir == "" {
		return errors.Errorf("a results directory must be provided")
	}

	if c.ExporterPort <= 0 || c.ExporterPort > 65535 {
		return errors.Errorf("invalid port %d", c.ExporterPort)
	}

	return nil
}

// Params converts the flags of the generate command. The seed is left unset
// for unseeded runs.
func (c Config) Params() spmf.Params {
	p := spmf.Params{
		NumSequences:     c.NumSequences,
		UniverseSize:     c.UniverseSize,
		MeanSentenceSize: c.MeanSentenceSize,
		StdSentenceSize:  c.StdSentenceSize,
		MeanItemsetSize:  c.MeanItemsetSize,
		StdItemsetSize:   c.StdItemsetSize,
	}

	if c.Unseeded {
		return p
	}
	return p.WithSeed(c.Seed)
}

func (c *Config) parseLabels() {
	result := make(map[string]string)
	if c.Labels == "" {
		c.LabelMap = result
		return
	}

	pairs := strings.Split(c.Labels, ",")

	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2) // SplitN to make sure we only split on the first "="
		if len(kv) == 2 {
			result[strings.TrimSpace(kv[0])] = kv[1]
		}
	}

	c.LabelMap = result
}
