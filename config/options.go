package config

// Option 配置选项模式
type Option func(*Options)

// Options 加载器选项
type Options struct {
	Name      string         // 配置文件名称（不含扩展名）
	Paths     []string       // 配置文件搜索路径
	FileType  string         // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string         // 环境变量前缀
	Defaults  map[string]any // 默认值，key 使用 "." 分隔的路径
}

// defaultOptions 返回默认选项
func defaultOptions() *Options {
	return &Options{
		Name:      "config",
		Paths:     []string{".", "./config"},
		FileType:  "yaml",
		EnvPrefix: "PUSHGATE",
	}
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *Options) {
		o.Paths = paths
	}
}

// WithConfigType 设置配置文件类型 (yaml, json, etc.)
func WithConfigType(typ string) Option {
	return func(o *Options) {
		o.FileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithDefaults 注册默认值，多次调用会合并
func WithDefaults(defaults map[string]any) Option {
	return func(o *Options) {
		if o.Defaults == nil {
			o.Defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			o.Defaults[k] = v
		}
	}
}
