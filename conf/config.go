// Package conf 保存编译与运行的配置：环境变量、节点上限、日志、区域设置、禁用的内置函数。
package conf

import (
	"os"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// DefaultMaxNodes 是未配置 MaxNodes 时解析树允许的最大节点数。
const DefaultMaxNodes uint = 1e4

// LogEnv 是控制默认日志级别的环境变量，例如 FORMULA_LOG=trace。
const LogEnv = "FORMULA_LOG"

type Config struct {
	Env map[string]values.Value
	// Types 声明变量的静态类型：只有类型没有值的变量只能用于 Check；
	// 同时提供值时，值必须能赋给声明的类型。
	Types map[string]types.Type
	// Expect 非空时，表达式的类型必须能赋给它。
	Expect   types.Type
	MaxNodes uint
	Logger   hclog.Logger
	Locale   language.Tag
	Disabled map[string]bool
}

// New 创建默认配置。
func New() *Config {
	return &Config{
		Env:      make(map[string]values.Value),
		Types:    make(map[string]types.Type),
		MaxNodes: DefaultMaxNodes,
		Logger:   DefaultLogger(),
		Locale:   language.English,
		Disabled: make(map[string]bool),
	}
}

// DefaultLogger 在设置了 FORMULA_LOG 时输出到 stderr，否则丢弃所有日志。
func DefaultLogger() hclog.Logger {
	level := os.Getenv(LogEnv)
	if level == "" {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "formula",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}

// Log 返回配置的日志，配置为空时返回空日志。
func (c *Config) Log() hclog.Logger {
	if c == nil || c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// NodeLimit 返回解析器的节点上限，0 表示不限制。
func (c *Config) NodeLimit() uint {
	if c == nil {
		return DefaultMaxNodes
	}
	return c.MaxNodes
}

func (c *Config) Disable(names ...string) {
	if c.Disabled == nil {
		c.Disabled = make(map[string]bool)
	}
	for _, name := range names {
		c.Disabled[name] = true
	}
}

func (c *Config) IsDisabled(name string) bool {
	return c != nil && c.Disabled[name]
}

// WithEnv 合并宿主环境，同名变量以后加入的为准。
func (c *Config) WithEnv(env any) error {
	vars, err := Env(env)
	if err != nil {
		return err
	}
	if c.Env == nil {
		c.Env = make(map[string]values.Value, len(vars))
	}
	for name, v := range vars {
		c.Env[name] = v
	}
	return nil
}

// Declare 声明变量的静态类型。
func (c *Config) Declare(name string, t types.Type) {
	if c.Types == nil {
		c.Types = make(map[string]types.Type)
	}
	c.Types[name] = t
}
