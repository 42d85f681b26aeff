package config

import (
	"fmt"
	"strings"
)

// New 创建配置加载器，需要调用 Load 后才能读取配置。
func New(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}

	if options.Name == "" {
		return nil, WrapValidationError(fmt.Errorf("config name is empty"))
	}
	options.EnvPrefix = strings.ToUpper(options.EnvPrefix)

	return newLoader(options), nil
}
