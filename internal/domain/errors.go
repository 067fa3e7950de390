package domain

import "errors"

// ErrUserNotFound 表示 Bangumi 上不存在该用户。
var ErrUserNotFound = errors.New("找不到该用户，请确认 ID 是否正确")

// ErrNoEntries 表示目标年份没有任何符合条件的记录。
var ErrNoEntries = errors.New("没有找到任何已玩过的游戏")

// ErrUpstream 表示 Bangumi 接口返回非成功状态或网络故障。
var ErrUpstream = errors.New("Bangumi 接口请求失败")

// ErrRendererNotFound 表示主机上没有可用的浏览器可执行文件。
var ErrRendererNotFound = errors.New("未找到可用的 Chromium，可通过 CHROMIUM_PATH 指定")

// ErrRender 表示截图进程出错、退出码非零或超时。
var ErrRender = errors.New("报告图片渲染失败")

// ErrValidation 表示请求参数不合法。
var ErrValidation = errors.New("请求参数不合法")
