// Package main provides localization for the tapeplay CLI.
package main

import (
	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Play back recorded order books at a steady frame rate.": "記録した板情報を一定のフレームレートで再生",

		// Commands
		"Serve recordings over HTTP.": "記録をHTTPで配信",
		"Play a recording.":           "記録を再生",
		"List recordings.":            "記録の一覧を表示",
		"Show version information.":   "バージョン情報を表示",
		"tapeplay version %s":         "tapeplay バージョン %s",
		"No recordings found.":        "記録が見つかりません。",
		"%s\t%d rows\t%s → %s":        "%s\t%d 行\t%s → %s",

		// Global flags
		"Configuration file (YAML).":            "設定ファイル（YAML）",
		"Log level (debug, info, warn, error).": "ログレベル（debug, info, warn, error）",
		"Suppress all log output.":              "ログ出力をすべて抑制",

		// Serve flags
		"Directory holding the CSV recordings.":  "CSV記録を置くディレクトリ",
		"Listen address (default: :8050).":       "待ち受けアドレス（デフォルト: :8050）",
		"Rows per chunk served by the API.":      "APIが返すチャンクの行数",
		"Extraction workers (0 uses every CPU).": "抽出ワーカー数（0で全CPU）",

		// Play flags
		"Recording name.":                                          "記録名",
		"Base URL of a tapeplay server.":                           "tapeplayサーバーのベースURL",
		"Read recordings from this directory instead of a server.": "サーバーの代わりにこのディレクトリから記録を読む",
		"Preset (realtime or replay).":                             "プリセット（realtime または replay）",
		"Playback speed multiplier.":                               "再生速度の倍率",
		"Target frames per second.":                                "目標フレームレート（fps）",
		"Row to start from.":                                       "再生を開始する行",
		"Rows per request.":                                        "1リクエストあたりの行数",
		"Rows to keep behind the playhead.":                        "再生位置より前に保持する行数",
		"Start in background mode.":                                "バックグラウンドモードで開始",
		"Renderer (text, png, json, none).":                        "レンダラー（text, png, json, none）",
		"Directory for png and json output.":                       "png と json の出力先ディレクトリ",
		"Print every frame as a full block.":                       "各フレームを全体表示で出力",
		"Serve a viewer websocket on this address.":                "このアドレスでビューア用WebSocketを提供",
		"Write a Markdown summary to this path.":                   "Markdown形式のサマリーをこのパスに出力",

		// Summary content
		"Playback Summary":    "再生サマリー",
		"Generated":           "生成日時",
		"Session":             "セッション",
		"Results":             "実行結果",
		"Settings":            "設定",
		"Counters":            "カウンター",
		"Item":                "項目",
		"Value":               "値",
		"Generated by":        "生成:",
		"Yes":                 "はい",
		"No":                  "いいえ",
		"Foreground":          "フォアグラウンド",
		"Background":          "バックグラウンド",
		"File":                "ファイル",
		"Source":              "取得元",
		"Rows Played":         "再生行",
		"Reached End":         "末尾到達",
		"Duration":            "再生時間",
		"Effective Rate":      "実効レート",
		"Target Rate":         "目標レート",
		"Speed":               "速度",
		"Chunk Size":          "チャンクサイズ",
		"Low Water Mark":      "先読み閾値",
		"Publish Throttle":    "位置通知間隔",
		"Initial Mode":        "初期モード",
		"Frames Rendered":     "描画フレーム数",
		"Stalls":              "停止回数",
		"Requests":            "リクエスト数",
		"reset":               "リセット",
		"Mismatches":          "不一致",
		"Empty Deliveries":    "空の応答",
		"Dropped Deliveries":  "破棄した応答",
		"Fetch Errors":        "取得エラー",
		"Render Failures":     "描画失敗",
		"Positions Published": "位置通知数",
		"Strategy Switches":   "方式切替",
		"Seeks":               "シーク",
	})
}

// helpVars exposes translated help strings to kong struct tags.
func helpVars() kong.Vars {
	return kong.Vars{
		"help_config":       l10n.T("Configuration file (YAML)."),
		"help_log_level":    l10n.T("Log level (debug, info, warn, error)."),
		"help_quiet":        l10n.T("Suppress all log output."),
		"help_serve":        l10n.T("Serve recordings over HTTP."),
		"help_play":         l10n.T("Play a recording."),
		"help_files":        l10n.T("List recordings."),
		"help_version":      l10n.T("Show version information."),
		"help_data_dir":     l10n.T("Directory holding the CSV recordings."),
		"help_addr":         l10n.T("Listen address (default: :8050)."),
		"help_server_chunk": l10n.T("Rows per chunk served by the API."),
		"help_workers":      l10n.T("Extraction workers (0 uses every CPU)."),
		"help_file":         l10n.T("Recording name."),
		"help_server":       l10n.T("Base URL of a tapeplay server."),
		"help_local":        l10n.T("Read recordings from this directory instead of a server."),
		"help_preset":       l10n.T("Preset (realtime or replay)."),
		"help_speed":        l10n.T("Playback speed multiplier."),
		"help_fps":          l10n.T("Target frames per second."),
		"help_start":        l10n.T("Row to start from."),
		"help_chunk":        l10n.T("Rows per request."),
		"help_keep_behind":  l10n.T("Rows to keep behind the playhead."),
		"help_background":   l10n.T("Start in background mode."),
		"help_render":       l10n.T("Renderer (text, png, json, none)."),
		"help_render_dir":   l10n.T("Directory for png and json output."),
		"help_block":        l10n.T("Print every frame as a full block."),
		"help_ws_addr":      l10n.T("Serve a viewer websocket on this address."),
		"help_summary":      l10n.T("Write a Markdown summary to this path."),
	}
}
