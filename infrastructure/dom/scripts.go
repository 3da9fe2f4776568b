package dom

import (
	"encoding/json"
	"fmt"
)

// MarkerAttribute tags every overlay box injected into the page
const MarkerAttribute = "data-page-marker"

// snapshotScript reads every element of the document in one pass: tag, text, the
// descriptive attributes, click handler, cursor, client rects and, for each rect,
// the element found at its center.
const snapshotScript = `function () {
	const all = Array.prototype.slice.call(document.querySelectorAll("*"));
	const index = new Map();
	all.forEach(function (el, i) { index.set(el, i); });

	const vw = Math.max(document.documentElement.clientWidth || 0, window.innerWidth || 0);
	const vh = Math.max(document.documentElement.clientHeight || 0, window.innerHeight || 0);
	const attrNames = ["aria-label", "name", "title", "placeholder", "role"];

	const nodes = all.map(function (el) {
		const attrs = {};
		for (const name of attrNames) {
			const value = el.getAttribute(name);
			if (value) attrs[name] = value;
		}

		const rects = [];
		const hits = [];
		for (const bb of el.getClientRects()) {
			rects.push({
				left: bb.left, top: bb.top, right: bb.right, bottom: bb.bottom,
				width: bb.width, height: bb.height
			});
			const hit = document.elementFromPoint(bb.left + bb.width / 2, bb.top + bb.height / 2);
			hits.push(hit && index.has(hit) ? index.get(hit) : -1);
		}

		const parent = el.parentElement;
		return {
			parent: parent && index.has(parent) ? index.get(parent) : -1,
			tag: el.tagName.toLowerCase(),
			text: (el.textContent || "").trim().replace(/\s{2,}/g, " "),
			attrs: attrs,
			onclick: el.onclick != null,
			cursor: window.getComputedStyle(el).cursor,
			rects: rects,
			hits: hits
		};
	});

	return JSON.stringify({
		url: window.location.href,
		title: document.title,
		viewport: { width: vw, height: vh },
		nodes: nodes
	});
}`

// drawScript appends one fixed, click-through overlay box per spec to the body
const drawScript = `function (specs) {
	const registry = window.__pageMarkers || (window.__pageMarkers = new Map());
	const drawn = [];
	for (const spec of specs) {
		const box = document.createElement("div");
		box.setAttribute("` + MarkerAttribute + `", spec.id);
		box.style.outline = "2px dashed " + spec.color;
		box.style.position = "fixed";
		box.style.left = spec.rect.left + "px";
		box.style.top = spec.rect.top + "px";
		box.style.width = spec.rect.width + "px";
		box.style.height = spec.rect.height + "px";
		box.style.pointerEvents = "none";
		box.style.boxSizing = "border-box";
		box.style.zIndex = 2147483647;

		const label = document.createElement("span");
		label.textContent = spec.index;
		label.style.position = "absolute";
		label.style.top = "-19px";
		label.style.left = "0px";
		label.style.background = spec.color;
		label.style.color = "white";
		label.style.padding = "2px 4px";
		label.style.fontSize = "12px";
		label.style.borderRadius = "2px";
		box.appendChild(label);

		document.body.appendChild(box);
		registry.set(spec.id, box);
		drawn.push(spec.id);
	}
	return JSON.stringify(drawn);
}`

// eraseScript removes the overlay boxes with the given ids, ignoring unknown ones
const eraseScript = `function (ids) {
	const registry = window.__pageMarkers;
	let removed = 0;
	for (const id of ids) {
		const box = registry ? registry.get(id) : null;
		if (box) {
			box.remove();
			registry.delete(id);
			removed++;
		}
	}
	return JSON.stringify(removed);
}`

const styleScript = `function (css) {
	const tag = document.createElement("style");
	tag.textContent = css;
	(document.head || document.documentElement).append(tag);
	return "true";
}`

// call builds an expression invoking fn with arg serialized as a JSON literal
func call(fn string, arg any) (string, error) {
	if arg == nil {
		return "(" + fn + ")()", nil
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("failed to encode script argument: %w", err)
	}
	return "(" + fn + ")(" + string(data) + ")", nil
}
