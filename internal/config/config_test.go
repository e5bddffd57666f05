package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "http://localhost:6800", cfg.Crawler.HostURL)
	require.Equal(t, "hepcrawl", cfg.Crawler.Project)
	require.Equal(t, "hep", cfg.Crawler.DataType)
	require.Equal(t, 1000, cfg.Harvest.MaxRecords)
	require.Equal(t, "harvest", cfg.Dispatch.DefaultQueue)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
crawler:
  host_url: http://scrapyd:6800
  project: myproject
  spider_arguments:
    APS:
      from_date: "2016-01-01"
dispatch:
  default_queue: harvest
  queues:
    APS: aps-harvest
db:
  dsn: postgres://crawler@localhost/crawler
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://scrapyd:6800", cfg.Crawler.HostURL)
	require.Equal(t, "myproject", cfg.Crawler.Project)
	require.Equal(t, "2016-01-01", cfg.Crawler.SpiderArguments["APS"]["from_date"])
	require.Equal(t, "aps-harvest", cfg.Dispatch.QueueFor("APS"))
	require.Equal(t, "harvest", cfg.Dispatch.QueueFor("CDS"))
	require.Equal(t, "postgres://crawler@localhost/crawler", cfg.DB.DSN)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Crawler:  CrawlerConfig{HostURL: "http://localhost:6800", Project: "hepcrawl", DataType: "hep"},
			Harvest:  HarvestConfig{MaxRecords: 1000},
			Dispatch: DispatchConfig{DefaultQueue: "harvest"},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.HostURL = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.DataType = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Harvest.MaxRecords = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Dispatch.DefaultQueue = ""
	require.Error(t, cfg.Validate())
}
