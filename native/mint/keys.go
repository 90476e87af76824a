package mint

import "encoding/binary"

var (
	positionPrefix    = []byte("mint/position/")
	ownerIndexPrefix  = []byte("mint/indexer/owner/")
	assetIndexPrefix  = []byte("mint/indexer/asset/")
	shortPrefix       = []byte("mint/short/")
	assetConfigPrefix = []byte("mint/asset_config/")
	positionIdxKey    = []byte("mint/position_idx")
	configKey         = []byte("mint/config")
)

func idxBytes(idx uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], idx)
	return b[:]
}

func idxFromBytes(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b[len(b)-8:])
}

func positionKey(idx uint64) []byte {
	return append(append([]byte(nil), positionPrefix...), idxBytes(idx)...)
}

func ownerIndexRange(owner []byte) []byte {
	key := append(append([]byte(nil), ownerIndexPrefix...), owner...)
	return append(key, '/')
}

func ownerIndexKey(owner []byte, idx uint64) []byte {
	return append(ownerIndexRange(owner), idxBytes(idx)...)
}

func assetIndexRange(token string) []byte {
	key := append(append([]byte(nil), assetIndexPrefix...), token...)
	return append(key, '/')
}

func assetIndexKey(token string, idx uint64) []byte {
	return append(assetIndexRange(token), idxBytes(idx)...)
}

func shortKey(idx uint64) []byte {
	return append(append([]byte(nil), shortPrefix...), idxBytes(idx)...)
}

func assetConfigKey(token string) []byte {
	return append(append([]byte(nil), assetConfigPrefix...), token...)
}
