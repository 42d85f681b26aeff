package clog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// newHandler 根据配置创建 slog.Handler，返回 handler 与其级别变量（内部使用）。
func newHandler(config *Config, options *options) (slog.Handler, *slog.LevelVar, error) {
	w, err := resolveWriter(config, options)
	if err != nil {
		return nil, nil, err
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}

	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(w, opts), levelVar, nil
	}
	return slog.NewTextHandler(w, opts), levelVar, nil
}

// resolveWriter 根据配置创建输出 writer。
func resolveWriter(config *Config, options *options) (io.Writer, error) {
	if options.writer != nil {
		return options.writer, nil
	}
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

// newReplaceAttr 统一处理 Level/Time/Source 等字段。
func newReplaceAttr(config *Config) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.LevelKey:
			level, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			if level > slog.LevelError {
				a.Value = slog.StringValue("FATAL")
			} else {
				a.Value = slog.StringValue(level.String())
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", trimSourcePath(source.File, config.SourceRoot)+":"+strconv.Itoa(source.Line))
			}
		}
		return a
	}
}

// trimSourcePath 根据 sourceRoot 裁剪调用文件路径。
func trimSourcePath(fileName, sourceRoot string) string {
	if sourceRoot != "" {
		relPath, err := filepath.Rel(sourceRoot, fileName)
		if err == nil && !strings.HasPrefix(relPath, "..") {
			return relPath
		}
	}
	if idx := strings.Index(fileName, "pushgate"); idx != -1 {
		return fileName[idx:]
	}
	return fileName
}
