// Package mcpr reads and writes ReplayMod (.mcpr) files.
//
// A replay is a ZIP file containing:
//   - recording.tmcpr: stream of [timeBE:int32][lenBE:int32][varint packetId][packet bytes]
//   - metaData.json: replay metadata written on Close()
//   - markers.json: user markers, when any were placed
//   - resourcepack/<sha1>.zip and resourcepack/index.json: deduplicated resource packs
//   - mods.json and recording.tmcpr.crc32 for ReplayMod compatibility
//
// During capture the packet stream is appended to a plain recording.tmcpr file
// by a StreamWriter; WriteArchive later bundles that stream with the metadata,
// markers and resource packs. The package never interprets packet payloads.
package mcpr
