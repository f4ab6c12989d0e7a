package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parquet_batch/pqerr"
)

const validConfig = `
hdfs:
  host: namenode.local
  filePath: /data/train.parquet
  port: 8020
  format: parquet
features:
  dim: 784
  format: dense
labels:
  dim: 10
  format: dense
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "/data/train.parquet", cfg.FilePath())
	assert.Equal(t, "namenode.local", *cfg.Source.Host)
	assert.Equal(t, 8020, *cfg.Source.Port)
	features, labels := cfg.Dims()
	assert.Equal(t, 784, features)
	assert.Equal(t, 10, labels)
}

func TestParseMissingKey(t *testing.T) {
	for _, tc := range []struct {
		drop string
		key  string
	}{
		{"  host: namenode.local\n", "hdfs.host"},
		{"  filePath: /data/train.parquet\n", "hdfs.filePath"},
		{"  port: 8020\n", "hdfs.port"},
		{"  format: parquet\n", "hdfs.format"},
		{"  dim: 784\n", "features.dim"},
		{"  dim: 10\n", "labels.dim"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			_, err := Parse([]byte(strings.Replace(validConfig, tc.drop, "", 1)))
			var cfgErr *pqerr.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.key, cfgErr.Key)
			assert.Contains(t, err.Error(), "missing")
		})
	}
}

func TestParseMissingSection(t *testing.T) {
	for _, tc := range []struct {
		doc string
		key string
	}{
		{"", "hdfs"},
		{"features: {dim: 1, format: dense}\nlabels: {dim: 1, format: dense}\n", "hdfs"},
		{"hdfs: {host: h, filePath: f, port: 1, format: parquet}\nlabels: {dim: 1, format: dense}\n", "features"},
		{"hdfs: {host: h, filePath: f, port: 1, format: parquet}\nfeatures: {dim: 1, format: dense}\n", "labels"},
		{"hdfs: {host: h, filePath: f, port: 1, format: parquet}\n", "labels"},
	} {
		_, err := Parse([]byte(tc.doc))
		var cfgErr *pqerr.ConfigError
		require.ErrorAs(t, err, &cfgErr, tc.doc)
		assert.Equal(t, tc.key, cfgErr.Key, tc.doc)
	}
}

func TestParseInvalidValues(t *testing.T) {
	for _, tc := range []struct {
		from, to string
		key      string
	}{
		{"format: parquet", "format: csv", "hdfs.format"},
		{"port: 8020", "port: 0", "hdfs.port"},
		{"dim: 784", "dim: -1", "features.dim"},
		{"dim: 10\n  format: dense", "dim: 10\n  format: sparse", "labels.format"},
	} {
		_, err := Parse([]byte(strings.Replace(validConfig, tc.from, tc.to, 1)))
		var cfgErr *pqerr.ConfigError
		require.ErrorAs(t, err, &cfgErr, tc.to)
		assert.Equal(t, tc.key, cfgErr.Key)
		assert.NotEmpty(t, cfgErr.Msg)
	}

	_, err := Parse([]byte("hdfs: [1, 2"))
	var cfgErr *pqerr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/train.parquet", cfg.FilePath())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioErr *pqerr.IOError
	assert.ErrorAs(t, err, &ioErr)
}
