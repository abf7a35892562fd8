package invindex

import (
	"github.com/spf13/viper"
)

func loadConfig() {
	viper.SetConfigName("invindexrc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.invindex")

	setupDefaults()

	viper.ReadInConfig()

	viper.SetEnvPrefix("invindex")
	viper.AutomaticEnv()
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"out":               "output",
		"shards":            3,
		"stop_words":        "stop_words.txt",
		"record_delimiter":  "</Document>",
		"partitioner":       "length",
		"skip_unidentified": false,
		"cleanup":           true,
		"verbose":           false,
		"progress":          true,
		"split_size":        100 * 1024 * 1024, // Default input split size is 100Mb
		"map_bin_size":      512 * 1024 * 1024, // Default map bin size is 512Mb
		"max_record_size":   16 * 1024 * 1024,  // Largest single document record
		"max_concurrency":   500,               // Maximum number of concurrent map tasks
		"combiner_size":     10000,             // Words buffered by each map task's combiner
		"pushgateway_url":   "",
		"memprofile":        "",
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose": "v",
		"out":     "o",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}
