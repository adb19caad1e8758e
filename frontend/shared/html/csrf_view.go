package html

// CSRFFormScript copies the CSRF cookie into POST forms as a hidden _csrf
// field and into the X-CSRF-Token header of same-origin fetch calls.
func CSRFFormScript() string {
	return `<script>
(function () {
  function readToken() {
    var prefix = "X-CSRF-Token=";
    var parts = document.cookie ? document.cookie.split(";") : [];
    for (var i = 0; i < parts.length; i++) {
      var c = parts[i].trim();
      if (c.indexOf(prefix) === 0) return decodeURIComponent(c.substring(prefix.length));
    }
    return "";
  }

  function tagForms() {
    var token = readToken();
    if (!token) return;
    document.querySelectorAll("form").forEach(function (form) {
      if ((form.getAttribute("method") || "GET").toUpperCase() !== "POST") return;
      if (form.querySelector("input[name='_csrf']")) return;
      var input = document.createElement("input");
      input.type = "hidden";
      input.name = "_csrf";
      input.value = token;
      form.appendChild(input);
    });
  }

  var nativeFetch = window.fetch;
  if (nativeFetch) {
    window.fetch = function (input, init) {
      init = init || {};
      var method = (init.method || "GET").toUpperCase();
      var url = typeof input === "string" ? input : input.url;
      var sameOrigin = new URL(url, location.href).origin === location.origin;
      if (sameOrigin && method !== "GET" && method !== "HEAD") {
        var headers = new Headers(init.headers || {});
        if (!headers.has("X-CSRF-Token")) headers.set("X-CSRF-Token", readToken());
        init.headers = headers;
      }
      return nativeFetch.call(this, input, init);
    };
  }

  if (document.readyState === "loading") {
    document.addEventListener("DOMContentLoaded", tagForms);
  } else {
    tagForms();
  }
})();
</script>`
}
