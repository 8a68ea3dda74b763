package issue

type fix struct {
	suggestion string
	autoFix    string
}

// fixes is keyed by feature ID. Features without an entry get neither a
// suggestion nor an auto-fix.
var fixes = map[string]fix{
	"word-break-auto-phrase": {
		suggestion: "Keep word-break: normal as the default and apply auto-phrase inside @supports (word-break: auto-phrase).",
		autoFix:    "@supports (word-break: auto-phrase) { word-break: auto-phrase; }",
	},
	"text-wrap-balance": {
		suggestion: "Balanced wrapping is a progressive enhancement; unsupported browsers fall back to normal wrapping.",
	},
	"text-wrap-pretty": {
		suggestion: "Treat text-wrap: pretty as an enhancement; no fallback is needed.",
	},
	"field-sizing": {
		suggestion: "Set an explicit width or rows as a fallback, or grow the control from script.",
	},
	"anchor-positioning": {
		suggestion: "Position with a script-based library where anchor positioning is unavailable.",
		autoFix:    "@supports (anchor-name: --a) { }",
	},
	"interpolate-size": {
		suggestion: "Animate max-height or grid-template-rows instead of intrinsic sizes.",
	},
	"has": {
		suggestion: "Guard rules with @supports selector(:has(a)) or add a class from script.",
	},
	"async-clipboard": {
		suggestion: "Check for navigator.clipboard before use and fall back to document.execCommand('copy').",
		autoFix:    "if (navigator.clipboard) { /* ... */ }",
	},
	"web-share": {
		suggestion: "Feature-detect navigator.share and offer a copy-link fallback.",
		autoFix:    "if (navigator.share) { /* ... */ }",
	},
	"file-system-access": {
		suggestion: "Fall back to <input type=\"file\"> and download links.",
	},
	"temporal": {
		suggestion: "Use a Temporal polyfill or Date until Temporal ships in all engines.",
	},
	"webgpu": {
		suggestion: "Check navigator.gpu and fall back to WebGL.",
	},
	"popover": {
		suggestion: "Load the popover polyfill for browsers without the popover attribute.",
	},
	"search": {
		suggestion: "Add role=\"search\" so assistive technology sees the landmark in older browsers.",
	},
	"selectlist": {
		suggestion: "Keep the native select appearance as a fallback.",
	},
	"view-transitions": {
		suggestion: "Check document.startViewTransition before calling it and update the DOM directly otherwise.",
	},
}
