package config

// Template 是 `moviegraph init` 写出的配置模板。
const Template = `# moviegraph 配置文件
#
# 优先级：命令行参数 / 环境变量 > 本文件 > 内置默认值。
# endpoint 与 api_key 也可以通过 MOVIEGRAPH_ENDPOINT / MOVIEGRAPH_API_KEY 提供。

endpoint: ""
api_key: ""
# api_key_header: x-api-key

# proxy:
#   url: http://127.0.0.1:7890

timeout: 20s

cache:
  # 条目在 stale_time 内直接使用；0s 表示一直有效直到变更后失效。
  stale_time: 60s
  gc_time: 5m
  max_entries: 256
  # 读失败后的重试次数（0..5）。
  read_retry: 1
  retry_delay: 500ms

log:
  level: info

# moviegraph seed 使用的 Bolt 连接。
neo4j:
  uri: ""
  username: neo4j
  password: ""
  database: ""
`
