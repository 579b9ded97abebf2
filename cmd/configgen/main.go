package main

import (
	"flag"

	"github.com/danmuck/lanectl/internal/config"
	"github.com/danmuck/lanectl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", "lanectl", "config kind: lanectl|env")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if *kind != "lanectl" {
			log.Fatal().Str("kind", *kind).Msg("only lanectl configs can be validated")
		}
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		cfg, err := config.Load(path)
		if err != nil {
			log.Fatal().Err(err).Msg("config invalid")
		}
		log.Info().Str("path", path).Str("serial", config.LineSummary(cfg)).Msg("validated lanectl config")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}

func defaultPath(kind string) string {
	switch kind {
	case "env":
		return ".env"
	default:
		return config.ExamplePath
	}
}
