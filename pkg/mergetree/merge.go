// SPDX-License-Identifier: MPL-2.0

package mergetree

// soundsKey is the one object key with concatenation semantics inside
// sounds.json event entries.
const soundsKey = "sounds"

// DeepMerge merges two object trees, with high winning on conflicts.
//
//   - a key present in only one input is copied into the result
//   - a key present in both with object values on both sides is merged
//     recursively
//   - any other collision (scalar, array, or mixed kinds) resolves to
//     high's value
//
// Neither input is mutated: the engine reuses the lower-priority tree as
// the accumulating base across several higher-priority contributions, so
// the result must be a fresh tree.
func DeepMerge(high, low *Object) *Object {
	result := low.Clone().(*Object)
	for _, key := range high.Keys() {
		highVal, _ := high.Get(key)
		lowVal, ok := result.Get(key)
		if !ok {
			result.Set(key, highVal.Clone())
			continue
		}
		highObj, highIsObj := highVal.(*Object)
		lowObj, lowIsObj := lowVal.(*Object)
		if highIsObj && lowIsObj {
			result.Set(key, DeepMerge(highObj, lowObj))
		} else {
			result.Set(key, highVal.Clone())
		}
	}
	return result
}

// MergeSounds merges two sounds.json trees. The top-level keys are sound
// event names; when both inputs define the same event, the event's
// "sounds" arrays are concatenated (high's elements first, duplicates
// preserved — sounds are additive) and every other event property takes
// high's value. Events present in only one input pass through unchanged.
//
// Like DeepMerge, neither input is mutated.
func MergeSounds(high, low *Object) *Object {
	result := low.Clone().(*Object)
	for _, event := range high.Keys() {
		highVal, _ := high.Get(event)
		lowVal, ok := result.Get(event)

		highObj, highIsObj := highVal.(*Object)
		lowObj, lowIsObj := lowVal.(*Object)
		if !ok || !highIsObj || !lowIsObj {
			// Event only in high, or one side is not an object: high wins.
			result.Set(event, highVal.Clone())
			continue
		}

		merged := lowObj.Clone().(*Object)

		highSounds := highObj.GetArray(soundsKey)
		lowSounds := lowObj.GetArray(soundsKey)
		switch {
		case highSounds != nil && lowSounds != nil:
			combined := make(Array, 0, len(highSounds)+len(lowSounds))
			combined = append(combined, highSounds.Clone().(Array)...)
			combined = append(combined, lowSounds.Clone().(Array)...)
			merged.Set(soundsKey, combined)
		case highSounds != nil:
			merged.Set(soundsKey, highSounds.Clone())
		}
		// Only low has sounds: already present in the cloned base.

		// Non-"sounds" event properties (replace, subtitle, ...) take
		// high's value.
		for _, prop := range highObj.Keys() {
			if prop == soundsKey {
				continue
			}
			v, _ := highObj.Get(prop)
			merged.Set(prop, v.Clone())
		}

		result.Set(event, merged)
	}
	return result
}
