package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session level messages (info)
		"Playing %s from row %d of %d at %.2fx": "%s を %d 行目から再生中 (全 %d 行, %.2f倍速)",
		"Reached end of data at row %d":         "%d 行目でデータの終端に到達しました",
		"Interrupted, shutting down...":         "中断されました。シャットダウン中...",

		// Server
		"Serving recordings on %s":           "%s で記録データを配信中",
		"Shutting down server":               "サーバーを停止中",
		"Loaded %s: %d rows, %d columns":     "%s を読み込みました: %d 行, %d 列",
		"Failed to load %s: %s":              "%s の読み込みに失敗しました: %s",
		"Failed to extract rows from %s: %s": "%s の行抽出に失敗しました: %s",
		"Request failed: %v":                 "リクエストに失敗しました: %v",

		// Buffer and controller
		"Chunk at row %d does not continue buffer ending at row %d, replacing buffer": "%d 行目のチャンクが %d 行目で終わるバッファに連続しないため、バッファを置き換えます",
		"Fetching rows from %d failed: %v":                                            "%d 行目からの取得に失敗しました: %v",
		"Could not read info for %s, assuming %d rows: %v":                            "%s の情報を取得できませんでした。%d 行とみなします: %v",
		"Renderer panicked at row %d: %v":                                             "%d 行目の描画中にパニックが発生しました: %v",
		"Rendering row %d failed: %v":                                                 "%d 行目の描画に失敗しました: %v",
		"Row %d not buffered, waiting for data":                                       "%d 行目がバッファにありません。データを待機中",
		"Requesting %d rows from row %d (reset=%t)":                                   "%[2]d 行目から %[1]d 行を要求 (reset=%[3]t)",
		"Playing from row %d at %.2fx":                                                "%d 行目から %.2f倍速で再生",
		"Paused at row %d":                                                            "%d 行目で一時停止",
		"Seek to row %d":                                                              "%d 行目へシーク",
		"Speed set to %.2fx":                                                          "再生速度を %.2f倍に設定",
		"Visibility changed to %s":                                                    "表示状態が %s に変わりました",
		"Stopped":                                                                     "停止しました",

		// Viewer hub
		"Websocket upgrade failed: %v":    "WebSocketへのアップグレードに失敗しました: %v",
		"Failed to encode %s message: %v": "%s メッセージのエンコードに失敗しました: %v",
		"Viewer connected (total: %d)":    "ビューアが接続しました (合計: %d)",
		"Viewer disconnected (total: %d)": "ビューアが切断しました (合計: %d)",
		"Dropping %s for a slow viewer":   "遅いビューアへの %s を破棄しました",

		// CLI
		"Summary saved to %s":            "サマリーを %s に保存しました",
		"Failed to write summary: %s":    "サマリーの書き込みに失敗しました: %s",
		"Viewers can connect to %s":      "ビューアは %s に接続できます",
		"Viewer hub stopped: %v":         "ビューアハブが停止しました: %v",
		"Failed to write frame dump: %v": "フレームダンプの書き込みに失敗しました: %v",
	})
}
